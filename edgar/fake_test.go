package edgar

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/source/weburl"
	"github.com/stretchr/testify/require"
)

const fakeServerURL = "http://localhost:3000"

var publicResolver = weburl.StaticResolver{"www.sec.gov": {"23.33.44.55"}}

// fakeNavigator validates like *mcp.Client and serves pages from a map keyed
// by canonical URL.
type fakeNavigator struct {
	mu         sync.Mutex
	validator  *weburl.Validator
	pages      map[string]string
	contentErr error
	navigated  []string
	current    string
}

func newFakeNavigator(pages map[string]string) *fakeNavigator {
	return &fakeNavigator{
		validator: weburl.NewValidator(publicResolver),
		pages:     pages,
	}
}

func (n *fakeNavigator) Navigate(ctx context.Context, target string, policy weburl.Policy) bool {
	res := n.validator.Validate(ctx, target, policy)
	if !res.OK() {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.pages[res.Canonical]; !ok {
		return false
	}
	n.navigated = append(n.navigated, res.Canonical)
	n.current = res.Canonical
	return true
}

func (n *fakeNavigator) PageContent(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.contentErr != nil {
		return "", n.contentErr
	}
	return n.pages[n.current], nil
}

func (n *fakeNavigator) BaseURL() string {
	return fakeServerURL
}

func (n *fakeNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.navigated...)
}

// staticIndex returns fixed candidates and counts calls.
type staticIndex struct {
	urls  []string
	err   error
	calls int
}

func (s *staticIndex) Candidates(ctx context.Context, ref filing.Reference) ([]string, error) {
	s.calls++
	return s.urls, s.err
}

// nilParser never recognizes a page.
type nilParser struct{}

func (nilParser) Parse(ctx context.Context, ref filing.Reference, pageURL, content string) (*filing.SecFiling, error) {
	return nil, nil
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

var errContent = &mcp.ContentRetrievalError{Status: 500, Body: "page crashed"}
