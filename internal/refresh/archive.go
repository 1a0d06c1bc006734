package refresh

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Member files of the upstream distribution.
const (
	RangesFile = "cidr_optim.txt"
	CitiesFile = "cities.txt"
)

// maxMemberSize caps a single decompressed member.
const maxMemberSize = 256 << 20

var ErrMissingMember = errors.New("archive member missing")

// Files holds the raw (still Windows-1251 encoded) member contents.
type Files struct {
	Ranges []byte
	Cities []byte
}

// Download fetches url into dst and returns the number of bytes written.
func Download(ctx context.Context, client *http.Client, url, dst string) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	return n, nil
}

// OpenArchive reads the range and city members from a .zip or .tar.gz file.
func OpenArchive(p string) (Files, error) {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return readZip(p)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		f, err := os.Open(p)
		if err != nil {
			return Files{}, err
		}
		defer f.Close()
		return readTarGz(f)
	default:
		return Files{}, fmt.Errorf("unsupported archive %q (want .zip or .tar.gz)", p)
	}
}

func readZip(p string) (Files, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return Files{}, err
	}
	defer zr.Close()

	var out Files
	for _, zf := range zr.File {
		dst := out.member(zf.Name)
		if dst == nil {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return Files{}, fmt.Errorf("open %s: %w", zf.Name, err)
		}
		*dst, err = readCapped(rc)
		rc.Close()
		if err != nil {
			return Files{}, fmt.Errorf("read %s: %w", zf.Name, err)
		}
	}
	return out, out.check()
}

func readTarGz(r io.Reader) (Files, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Files{}, err
	}
	defer gz.Close()

	var out Files
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Files{}, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dst := out.member(hdr.Name)
		if dst == nil {
			continue
		}
		if *dst, err = readCapped(tr); err != nil {
			return Files{}, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
	}
	return out, out.check()
}

func (f *Files) member(name string) *[]byte {
	switch path.Base(name) {
	case RangesFile:
		return &f.Ranges
	case CitiesFile:
		return &f.Cities
	}
	return nil
}

func (f Files) check() error {
	if f.Ranges == nil {
		return fmt.Errorf("%w: %s", ErrMissingMember, RangesFile)
	}
	if f.Cities == nil {
		return fmt.Errorf("%w: %s", ErrMissingMember, CitiesFile)
	}
	return nil
}

func readCapped(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxMemberSize+1))
	if err != nil {
		return nil, err
	}
	if n > maxMemberSize {
		return nil, fmt.Errorf("member larger than %d bytes", maxMemberSize)
	}
	if buf.Len() == 0 {
		return []byte{}, nil
	}
	return buf.Bytes(), nil
}
