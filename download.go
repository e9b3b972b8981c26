package sitrapesca

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dimchansky/utfbom"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// partialSuffix marks a file Chrome is still writing.
const partialSuffix = ".crdownload"

// Download is a file that appeared in the output directory during a run.
type Download struct {
	Name    string
	Size    int64
	Columns int // header columns of a CSV file, 0 otherwise
	Partial bool
}

type dirSnapshot map[string]struct{}

// snapshotDir lists the file names currently in dir. A missing directory is empty.
func snapshotDir(dir string) (dirSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return dirSnapshot{}, nil
		}
		return nil, err
	}
	snapshot := make(dirSnapshot, len(entries))
	for _, e := range entries {
		snapshot[e.Name()] = struct{}{}
	}
	return snapshot, nil
}

// newDownloads returns the files of dir that are not in before, sorted by name.
func newDownloads(dir string, before dirSnapshot) ([]Download, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var downloads []Download
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := before[e.Name()]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		d := Download{
			Name:    e.Name(),
			Size:    info.Size(),
			Partial: strings.HasSuffix(e.Name(), partialSuffix),
		}
		if !d.Partial && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			if header, err := csvHeaderFile(filepath.Join(dir, e.Name())); err == nil {
				d.Columns = len(header)
			}
		}
		downloads = append(downloads, d)
	}
	sort.Slice(downloads, func(i, j int) bool { return downloads[i].Name < downloads[j].Name })
	return downloads, nil
}

func csvHeaderFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csvHeader(f)
}

// csvHeader reads the first record of a report. Exports come either as
// UTF-8 with a BOM or as Windows-1252, and delimited by ';' or ','.
func csvHeader(r io.Reader) ([]string, error) {
	line, err := bufio.NewReader(utfbom.SkipOnly(r)).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !utf8.Valid(line) {
		line, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), line)
		if err != nil {
			return nil, err
		}
	}
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil, io.EOF
	}

	reader := csv.NewReader(bytes.NewReader(line))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		reader.Comma = ';'
	}
	return reader.Read()
}
