package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	imageMagic = 2051
	labelMagic = 2049
)

// Set is an in-memory labeled image collection. Pixels are normalized
// to [0, 1], one row-major slice per image.
type Set struct {
	Images [][]float64
	Labels []int
	Rows   int
	Cols   int
}

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.Images) }

// Load reads the train and test splits from IDX files beneath dir.
func Load(dir string) (train, test *Set, err error) {
	train, err = LoadSplit(dir, "train-images-idx3-ubyte", "train-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, err
	}
	test, err = LoadSplit(dir, "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// LoadSplit reads one image/label file pair from dir. Files may be raw IDX
// or gzip-compressed with a .gz suffix.
func LoadSplit(dir, imageFile, labelFile string) (*Set, error) {
	images, rows, cols, err := readImages(filepath.Join(dir, imageFile))
	if err != nil {
		return nil, err
	}
	labels, err := readLabels(filepath.Join(dir, labelFile))
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("dataset: %d images but %d labels", len(images), len(labels))
	}
	return &Set{Images: images, Labels: labels, Rows: rows, Cols: cols}, nil
}

func readImages(path string) ([][]float64, int, int, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer closeFn()

	var header struct {
		Magic uint32
		Count uint32
		Rows  uint32
		Cols  uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("read image header: %w", err)
	}
	if header.Magic != imageMagic {
		return nil, 0, 0, fmt.Errorf("bad image magic %d in %s", header.Magic, path)
	}

	size := int(header.Rows) * int(header.Cols)
	raw := make([]byte, size)
	images := make([][]float64, header.Count)
	for i := range images {
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, 0, 0, fmt.Errorf("read image %d: %w", i, err)
		}
		pixels := make([]float64, size)
		for j, b := range raw {
			pixels[j] = float64(b) / 255.0
		}
		images[i] = pixels
	}
	return images, int(header.Rows), int(header.Cols), nil
}

func readLabels(path string) ([]int, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var header struct {
		Magic uint32
		Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read label header: %w", err)
	}
	if header.Magic != labelMagic {
		return nil, fmt.Errorf("bad label magic %d in %s", header.Magic, path)
	}

	raw := make([]byte, header.Count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	labels := make([]int, header.Count)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

func openIDX(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		gz, gzErr := os.Open(path + ".gz")
		if gzErr != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		f = gz
		path += ".gz"
	}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		return zr, func() error {
			zr.Close()
			return f.Close()
		}, nil
	}
	return bufio.NewReader(f), f.Close, nil
}
