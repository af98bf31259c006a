package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadLabels reads one class label per line. Blank lines and lines starting
// with '#' are skipped. enc selects the file encoding: "", "utf-8", "gbk" or
// "gb18030".
func LoadLabels(path, enc string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadLabels(file, enc)
}

// ReadLabels is LoadLabels over an arbitrary reader.
func ReadLabels(r io.Reader, enc string) ([]string, error) {
	decoder, err := labelDecoder(enc)
	if err != nil {
		return nil, err
	}

	var labels []string
	scanner := bufio.NewScanner(transform.NewReader(r, decoder.NewDecoder()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

func labelDecoder(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	}
	return nil, fmt.Errorf("unsupported labels encoding %q", enc)
}
