package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIPFSNode implements the subset of /api/v0 used by IPFSContentStore
type fakeIPFSNode struct {
	mu      sync.Mutex
	objects map[string][]byte
	pinned  map[string]bool
}

func newFakeIPFSNode(t *testing.T) (*fakeIPFSNode, *httptest.Server) {
	node := &fakeIPFSNode{objects: map[string][]byte{}, pinned: map[string]bool{}}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *fakeIPFSNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v0/add":
		file, _, err := r.FormFile("file")
		if err != nil {
			writeIPFSError(w, "file argument 'path' is required")
			return
		}
		data, _ := io.ReadAll(file)
		sum := sha256.Sum256(data)
		cid := "Qm" + hex.EncodeToString(sum[:])[:44]
		n.mu.Lock()
		n.objects[cid] = data
		n.pinned[cid] = r.URL.Query().Get("pin") == "true"
		n.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"Name": "data", "Hash": cid, "Size": "1"})
	case "/api/v0/cat":
		cid := r.URL.Query().Get("arg")
		n.mu.Lock()
		data, ok := n.objects[cid]
		n.mu.Unlock()
		if !ok {
			writeIPFSError(w, "block was not found locally (offline): ipld: could not find "+cid)
			return
		}
		w.Write(data)
	case "/api/v0/id":
		json.NewEncoder(w).Encode(map[string]string{"ID": "12D3KooWTestPeer"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeIPFSError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]interface{}{"Message": msg, "Code": 0, "Type": "error"})
}

func TestIPFSContentStoreRoundTrip(t *testing.T) {
	node, srv := newFakeIPFSNode(t)
	store := NewIPFSContentStore(srv.URL, 5*time.Second)
	ctx := context.Background()

	payload := []byte(`{"a":1,"b":"two"}`)
	fp, err := store.Put(ctx, payload)
	require.NoError(t, err)
	assert.Contains(t, string(fp), "Qm")
	assert.True(t, node.pinned[string(fp)])

	got, err := store.Get(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestIPFSContentStoreNotFound(t *testing.T) {
	_, srv := newFakeIPFSNode(t)
	store := NewIPFSContentStore(srv.URL, 5*time.Second)

	_, err := store.Get(context.Background(), "QmMissing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIPFSContentStoreID(t *testing.T) {
	_, srv := newFakeIPFSNode(t)
	store := NewIPFSContentStore(srv.URL+"/", 5*time.Second)

	id, err := store.ID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12D3KooWTestPeer", id)

	srv.Close()
	_, err = store.ID(context.Background())
	assert.Error(t, err)
}

func TestMultiaddrToURL(t *testing.T) {
	assert.Equal(t, "http://ipfs:5001", multiaddrToURL("/dns4/ipfs/tcp/5001/http"))
	assert.Equal(t, "https://gw.example:443", multiaddrToURL("/dns4/gw.example/tcp/443/https"))
	assert.Equal(t, "http://127.0.0.1:5001", multiaddrToURL("/ip4/127.0.0.1/tcp/5001"))
	assert.Equal(t, "http://localhost:5001", multiaddrToURL("http://localhost:5001"))
}
