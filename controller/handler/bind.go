package handler

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

// bindJSONWithOptionalGzip handles JSON payloads that may be gzip-compressed.
// If the request header specifies gzip encoding, the body is decompressed before binding.
func bindJSONWithOptionalGzip(c *gin.Context, obj interface{}) error {
	encoding := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
	if strings.Contains(encoding, "gzip") {
		defer c.Request.Body.Close()

		gzipReader, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()

		bodyBytes, err := io.ReadAll(io.LimitReader(gzipReader, maxFileSize))
		if err != nil {
			return err
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		c.Request.ContentLength = int64(len(bodyBytes))
		c.Request.Header.Del("Content-Encoding")
	}

	return c.ShouldBindJSON(obj)
}
