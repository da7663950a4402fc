// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"

	"github.com/google/uuid"
)

// MultipartBody is a streaming multipart/form-data body holding one file
// part. Reading it yields the part header, the content bytes unmodified,
// then the closing boundary.
type MultipartBody struct {
	io.Reader

	Boundary string
	// ContentType is "multipart/form-data; boundary=<Boundary>".
	ContentType string
	// Size is the encoded length in bytes, or -1 when the content length
	// could not be determined up front.
	Size int64
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart wraps content in a single-part multipart/form-data body
// under the form field name field. Content is read lazily, as the body is
// read.
func EncodeMultipart(field string, content io.Reader) *MultipartBody {
	boundary := newBoundary()

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	if err := mw.SetBoundary(boundary); err != nil {
		// newBoundary only produces valid boundaries.
		panic(err)
	}
	name := quoteEscaper.Replace(field)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, name, name))
	h.Set("Content-Type", "application/octet-stream")
	if _, err := mw.CreatePart(h); err != nil {
		panic(err)
	}
	tail := "\r\n--" + boundary + "--\r\n"

	size := int64(-1)
	if n := contentSize(content); n >= 0 {
		size = int64(head.Len()) + n + int64(len(tail))
	}
	return &MultipartBody{
		Reader:      io.MultiReader(bytes.NewReader(head.Bytes()), content, strings.NewReader(tail)),
		Boundary:    boundary,
		ContentType: mw.FormDataContentType(),
		Size:        size,
	}
}

func newBoundary() string {
	return "nupush-" + uuid.NewString()
}

// contentSize reports the number of bytes left in r, or -1 if unknown.
func contentSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case *os.File:
		fi, err := v.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			return -1
		}
		pos, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return fi.Size() - pos
	case io.Seeker:
		cur, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		end, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return -1
		}
		if _, err := v.Seek(cur, io.SeekStart); err != nil {
			return -1
		}
		return end - cur
	}
	return -1
}
