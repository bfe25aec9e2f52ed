package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

type staticAsset struct {
	data        []byte
	contentType string
	etag        string
}

// staticAssets indexes the embedded files once; they cannot change while the process runs.
var staticAssets = loadStaticAssets()

func loadStaticAssets() map[string]staticAsset {
	assets := make(map[string]staticAsset)
	err := fs.WalkDir(staticFiles, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := staticFiles.ReadFile(p)
		if err != nil {
			return err
		}

		ctype := mime.TypeByExtension(strings.ToLower(path.Ext(p)))
		if ctype == "" {
			ctype = http.DetectContentType(data)
		}
		if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
			ctype += "; charset=utf-8"
		}

		sum := sha256.Sum256(data)
		assets[strings.TrimPrefix(p, "static/")] = staticAsset{
			data:        data,
			contentType: ctype,
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		panic("Failed to index static files: " + err.Error())
	}
	return assets
}

// StreamFile writes an embedded static file. A matching If-None-Match gets a 304.
func StreamFile(w http.ResponseWriter, r *http.Request, fileName string) error {
	asset, ok := staticAssets[fileName]
	if !ok {
		return fmt.Errorf("static file %q: %w", fileName, fs.ErrNotExist)
	}

	w.Header().Set("ETag", asset.etag)
	if r.Header.Get("If-None-Match") == asset.etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", asset.contentType)
	if _, err := w.Write(asset.data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", fileName, err)
	}
	return nil
}
