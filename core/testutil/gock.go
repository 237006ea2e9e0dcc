package testutil

import (
	"io"

	"github.com/h2non/gock"
)

// UnmatchedRequestsTestingT is the part of *testing.T needed by
// AssertNoUnmatchedRequests.
type UnmatchedRequestsTestingT interface {
	Log(...interface{})
	Logf(string, ...interface{})
	FailNow()
}

// AssertNoUnmatchedRequests fails the test when the gock mock chain saw
// requests no mock matched, dumping each of them for diagnosis.
func AssertNoUnmatchedRequests(t UnmatchedRequestsTestingT) {
	if !gock.HasUnmatchedRequest() {
		return
	}

	t.Log("gock has unmatched requests, dumping them")

	for _, r := range gock.GetUnmatchedRequests() {
		t.Logf("%s %s %s", r.Proto, r.Method, r.URL.String())

		for header, values := range r.Header {
			for _, value := range values {
				t.Logf("[header] %s: %s", header, value)
			}
		}

		if r.Body == nil {
			t.Log("no body is present")
			continue
		}

		data, err := io.ReadAll(r.Body)
		switch {
		case err != nil:
			t.Logf("cannot read body: %s", err)
		case len(data) == 0:
			t.Log("body is empty")
		default:
			t.Logf("body:\n%s", string(data))
		}
	}

	t.FailNow()
}
