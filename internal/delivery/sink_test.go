package delivery

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestLocalSinkSaveBlob(t *testing.T) {
	assert := assert_.New(t)

	targetDir := t.TempDir()
	sink, err := NewLocalSink(targetDir)
	assert.Nil(err)

	savedPath, err := sink.SaveBlob(context.Background(), "cat.png", Blob{
		ContentType: "image/png",
		Data:        []byte("png bytes"),
	})
	assert.Nil(err)
	assert.Equal(filepath.Join(targetDir, "cat.png"), savedPath)

	data, err := os.ReadFile(savedPath)
	assert.Nil(err)
	assert.Equal([]byte("png bytes"), data)

	// No staging temp files left behind.
	entries, err := os.ReadDir(targetDir)
	assert.Nil(err)
	assert.Len(entries, 1)
}

func TestLocalSinkSaveLink(t *testing.T) {
	assert := assert_.New(t)

	body := bytes.Repeat([]byte("x"), 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	counter := bytes.Buffer{}
	sink, err := NewLocalSink(t.TempDir(), WithClient(server.Client()), WithTap(&counter))
	assert.Nil(err)

	savedPath, err := sink.SaveLink(context.Background(), "cat.png", server.URL+"/cat.png")
	assert.Nil(err)
	data, err := os.ReadFile(savedPath)
	assert.Nil(err)
	assert.Equal(body, data)
	assert.Equal(len(body), counter.Len())
}

func TestLocalSinkSaveLinkRejected(t *testing.T) {
	assert := assert_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	targetDir := t.TempDir()
	sink, err := NewLocalSink(targetDir, WithClient(server.Client()))
	assert.Nil(err)

	_, err = sink.SaveLink(context.Background(), "cat.png", server.URL+"/cat.png")
	assert.NotNil(err)
	assert.Contains(err.Error(), "403")

	entries, err := os.ReadDir(targetDir)
	assert.Nil(err)
	assert.Empty(entries)
}

func TestLocalSinkFlattensFilenames(t *testing.T) {
	assert := assert_.New(t)

	targetDir := t.TempDir()
	sink, err := NewLocalSink(targetDir)
	assert.Nil(err)

	savedPath, err := sink.SaveBlob(context.Background(), "../../escape.png", Blob{Data: []byte("x")})
	assert.Nil(err)
	assert.Equal(filepath.Join(targetDir, "escape.png"), savedPath)
}

func TestLocalSinkOpenTab(t *testing.T) {
	assert := assert_.New(t)

	sink, err := NewLocalSink(t.TempDir())
	assert.Nil(err)
	assert.Equal("", sink.HandoffURL())
	assert.Nil(sink.OpenTab(context.Background(), "https://assets.example.com/cat.png"))
	assert.Equal("https://assets.example.com/cat.png", sink.HandoffURL())
}

func TestLocalSinkCancelledContext(t *testing.T) {
	assert := assert_.New(t)

	sink, err := NewLocalSink(t.TempDir())
	assert.Nil(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.SaveBlob(ctx, "cat.png", Blob{Data: []byte("x")})
	assert.ErrorIs(err, context.Canceled)
}
