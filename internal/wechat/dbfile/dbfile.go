// Package dbfile reads just enough of an encrypted database file to
// drive validation and per-file decryption setup: its size in pages and
// its first page (salt + ciphertext + IV + HMAC). Grounded in the
// teacher's internal/wechat/decrypt/common.OpenDBFile.
package dbfile

import (
	"bytes"
	"io"
	"os"

	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// sqliteHeaderPrefix is checked independently of pagecrypto.Config so this
// package has no dependency on a specific page-format variant.
const sqliteHeaderPrefix = "SQLite format 3\x00"

// File holds the page-0 bytes and sizing info needed before the main
// decryption pipeline starts.
type File struct {
	Path       string
	FirstPage  []byte
	TotalPages int64
	Size       int64
}

// OpenFirstPage opens path, reads its first pageSize bytes, and
// computes its total page count. Returns werrors with KindFormatInvalid
// if the file is already a decrypted SQLite file.
func OpenFirstPage(path string, pageSize int) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, werrors.OpenFileFailed(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, werrors.ReadFileFailed(path, err)
	}

	size := info.Size()
	totalPages := size / int64(pageSize)
	if size%int64(pageSize) > 0 {
		totalPages++
	}

	buf := make([]byte, pageSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, werrors.ReadFileFailed(path, err)
	}
	buf = buf[:n]

	if bytes.HasPrefix(buf, []byte(sqliteHeaderPrefix)) {
		return nil, werrors.ErrAlreadyDecrypted
	}

	return &File{
		Path:       path,
		FirstPage:  buf,
		TotalPages: totalPages,
		Size:       size,
	}, nil
}
