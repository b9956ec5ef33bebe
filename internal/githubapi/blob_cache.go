package githubapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	getBlobOperationNameConstant = OperationName("GetBlob")
	blobEndpointTemplateConstant = "repos/%s/%s/git/blobs/%s"
	blobGroupKeyTemplateConstant = "%s/%s@%s"
	blobSizeMultiplierConstant   = 2
	minimumBlobEntrySizeConstant = 1
	base64EncodingNameConstant   = "base64"
)

// BlobKey identifies a blob within a repository.
type BlobKey struct {
	Owner      string
	Repository string
	SHA        string
}

// BlobEntry is a cached blob. Size approximates its memory footprint.
type BlobEntry struct {
	Content string
	Size    int64
}

// BlobCache stores blob contents. Entries are never invalidated because blob
// hashes are content addresses.
type BlobCache interface {
	Get(key BlobKey) (BlobEntry, bool)
	Put(key BlobKey, entry BlobEntry)
}

// MemoryBlobCache is an unbounded in-memory BlobCache safe for concurrent use.
type MemoryBlobCache struct {
	mutex   sync.RWMutex
	entries map[BlobKey]BlobEntry
}

// NewMemoryBlobCache constructs an empty MemoryBlobCache.
func NewMemoryBlobCache() *MemoryBlobCache {
	return &MemoryBlobCache{entries: make(map[BlobKey]BlobEntry)}
}

// Get returns the entry stored for key.
func (cache *MemoryBlobCache) Get(key BlobKey) (BlobEntry, bool) {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()
	entry, found := cache.entries[key]
	return entry, found
}

// Put stores entry under key.
func (cache *MemoryBlobCache) Put(key BlobKey, entry BlobEntry) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries[key] = entry
}

// Len reports the number of cached blobs.
func (cache *MemoryBlobCache) Len() int {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()
	return len(cache.entries)
}

// TotalSize sums the Size of every cached blob.
func (cache *MemoryBlobCache) TotalSize() int64 {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()
	var total int64
	for _, entry := range cache.entries {
		total += entry.Size
	}
	return total
}

// blobEntrySize is never below one so every cached entry has a weight.
func blobEntrySize(content string, filePath string, mode string) int64 {
	size := int64(blobSizeMultiplierConstant * (len(content) + len(filePath) + len(mode)))
	if size < minimumBlobEntrySizeConstant {
		return minimumBlobEntrySizeConstant
	}
	return size
}

// getBlob returns the file for a tree entry, reading the blob through the
// cache. Concurrent misses for one blob share a single request.
func (client *Client) getBlob(executionContext context.Context, repoURI string, key BlobKey, filePath string, mode string) (gitprovider.GitFile, error) {
	if entry, found := client.blobCache.Get(key); found {
		client.metrics.IncBlobCache(true)
		return newBlobFile(filePath, entry.Content, mode), nil
	}
	client.metrics.IncBlobCache(false)

	groupKey := fmt.Sprintf(blobGroupKeyTemplateConstant, key.Owner, key.Repository, key.SHA)
	value, fetchError, _ := client.blobGroup.Do(groupKey, func() (any, error) {
		if entry, found := client.blobCache.Get(key); found {
			return entry, nil
		}
		content, blobError := client.fetchBlob(executionContext, repoURI, key)
		if blobError != nil {
			return nil, blobError
		}
		entry := BlobEntry{Content: content, Size: blobEntrySize(content, filePath, mode)}
		client.blobCache.Put(key, entry)
		return entry, nil
	})
	if fetchError != nil {
		return gitprovider.GitFile{}, fetchError
	}
	return newBlobFile(filePath, value.(BlobEntry).Content, mode), nil
}

func (client *Client) fetchBlob(executionContext context.Context, repoURI string, key BlobKey) (string, error) {
	var response struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	request := apiRequest{
		operation: getBlobOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(blobEndpointTemplateConstant, key.Owner, key.Repository, key.SHA),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return "", requestError
	}
	return decodeContent(getBlobOperationNameConstant, response.Content, response.Encoding)
}

// decodeContent decodes GitHub's base64 payloads, which are wrapped at 60 columns.
func decodeContent(operation OperationName, content string, encoding string) (string, error) {
	if !strings.EqualFold(encoding, base64EncodingNameConstant) {
		return content, nil
	}
	compact := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	decoded, decodingError := base64.StdEncoding.DecodeString(compact)
	if decodingError != nil {
		return "", ResponseDecodingError{Operation: operation, Cause: decodingError}
	}
	return string(decoded), nil
}

func newBlobFile(filePath string, content string, mode string) gitprovider.GitFile {
	if len(mode) == 0 {
		mode = gitprovider.DefaultFileMode
	}
	return gitprovider.GitFile{
		FilePath:        filePath,
		Content:         content,
		ContentEncoding: gitprovider.ContentEncodingUTF8,
		Mode:            mode,
	}
}
