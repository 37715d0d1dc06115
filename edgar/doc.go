// Package edgar locates SEC EDGAR filings through an MCP browser session and
// exposes them by position in a company's filing history.
//
// # Flow
//
// A Locator turns (CIK, form type, year) into filings:
//
//  1. An IndexSource lists candidate filing index URLs. The default
//     BrowseIndex opens the EDGAR company browse page and reads its
//     filings table.
//  2. Every candidate must pass weburl.PublicRegulatorPolicy before the
//     browser is sent there. A rejected candidate aborts the lookup with an
//     error wrapping both *weburl.RejectedError and ErrInvalidInput; it is
//     never navigated.
//  3. The page content is handed to a Parser. The default IndexPageParser
//     reads an EDGAR filing index page into a filing.SecFiling.
//
// An Extractor wraps any HistorySource (a *Locator in production) and adds
// index-based accessors. All of them share one bounds check, and
// out-of-range positions fail with ErrIndexOutOfRange rather than being
// clamped.
//
// # Errors
//
// Caller-input problems wrap ErrInvalidInput, ErrIndexOutOfRange or
// ErrFilingNotFound; IsInputError recognizes all of them. Connectivity
// problems surface as *mcp.ConnectionError, and content failures as
// *mcp.ContentRetrievalError.
package edgar
