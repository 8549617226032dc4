package azure

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	rtest "github.com/mdarezzo/massundelete/internal/test"
)

func testBackend(t *testing.T, srvURL string, auth ...policy.Policy) *Backend {
	t.Helper()

	cfg := NewConfig()
	cfg.AccountURL = srvURL
	cfg.Container = "data"

	pl := runtime.NewPipeline("test", "v1", runtime.PipelineOptions{
		PerRetry: auth,
	}, &policy.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: -1},
	})
	return &Backend{cfg: cfg, pl: pl}
}

func TestUndeleteRequest(t *testing.T) {
	var (
		method string
		url    string
		query  string
		header http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		url = r.URL.EscapedPath()
		query = r.URL.Query().Get("comp")
		header = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	be := testBackend(t, srv.URL)
	rtest.OK(t, be.Undelete(context.Background(), "dir/sub dir/file.txt", "133687340223775421"))

	rtest.Equals(t, http.MethodPut, method)
	rtest.Equals(t, "/data/dir/sub%20dir/file.txt", url)
	rtest.Equals(t, "undelete", query)
	rtest.Equals(t, "dir/sub%20dir/file.txt?deletionid=133687340223775421", header.Get(headerUndeleteSource))
	rtest.Equals(t, storageAPIVersion, header.Get(headerVersion))
}

// Error responses must map onto the classification predicates through the
// x-ms-error-code header, like the SDK's own clients do.
func TestUndeleteErrorResponses(t *testing.T) {
	var status int
	var errorCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ms-error-code", errorCode)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	be := testBackend(t, srv.URL)

	status, errorCode = http.StatusConflict, "PathAlreadyExists"
	err := be.Undelete(context.Background(), "dir/file", "1")
	rtest.Assert(t, err != nil, "expected error for conflict response")
	rtest.Assert(t, be.IsAlreadyExists(err), "conflict response not recognized as already exists: %v", err)

	status, errorCode = http.StatusServiceUnavailable, "ServerBusy"
	err = be.Undelete(context.Background(), "dir/file", "1")
	rtest.Assert(t, be.IsThrottled(err), "busy response not recognized as throttling: %v", err)

	status, errorCode = http.StatusInternalServerError, "InternalError"
	err = be.Undelete(context.Background(), "dir/file", "1")
	rtest.Assert(t, be.IsTransient(err), "server error not recognized as transient: %v", err)
}

func TestUndeleteSharedKeyAuth(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))

	var auth, date string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		date = r.Header.Get(headerDate)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	be := testBackend(t, srv.URL, &sharedKeyPolicy{accountName: "myaccount", accountKey: key})
	rtest.OK(t, be.Undelete(context.Background(), "dir/file", "1"))

	rtest.Assert(t, strings.HasPrefix(auth, "SharedKey myaccount:"), "unexpected authorization header %q", auth)
	rtest.Assert(t, date != "", "x-ms-date header not set")
}

func TestStringToSign(t *testing.T) {
	r, err := http.NewRequest(http.MethodPut, "https://myaccount.blob.core.windows.net/data/dir/file?comp=undelete", nil)
	rtest.OK(t, err)
	r.Header.Set(headerVersion, "2023-08-03")
	r.Header.Set(headerDate, "Mon, 02 Jan 2006 15:04:05 GMT")
	r.Header.Set(headerUndeleteSource, "dir/file?deletionid=1")

	got, err := stringToSign("myaccount", r)
	rtest.OK(t, err)

	want := "PUT\n\n\n\n\n\n\n\n\n\n\n\n" +
		"x-ms-date:Mon, 02 Jan 2006 15:04:05 GMT\n" +
		"x-ms-undelete-source:dir/file?deletionid=1\n" +
		"x-ms-version:2023-08-03\n" +
		"/myaccount/data/dir/file\ncomp:undelete"
	rtest.Equals(t, want, got)
}

func TestEscapePath(t *testing.T) {
	for _, c := range []struct{ in, want string }{
		{"file", "file"},
		{"dir/file", "dir/file"},
		{"dir/sub dir/a#b.txt", "dir/sub%20dir/a%23b.txt"},
	} {
		rtest.Equals(t, c.want, escapePath(c.in))
	}
}

func TestBlobContainerURL(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountURL = "https://myaccount.dfs.core.windows.net"
	cfg.Container = "data"
	rtest.Equals(t, "https://myaccount.blob.core.windows.net/data", cfg.BlobContainerURL())

	cfg.AccountURL = "https://myaccount.blob.core.windows.net"
	rtest.Equals(t, "https://myaccount.blob.core.windows.net/data", cfg.BlobContainerURL())
}
