package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrFileNotFound = errors.New("file to extract not found")

type Options struct {
	ExtractImages bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{ExtractImages: cfg.GetExtractImages()}
}

type Result struct {
	Text   string
	Images [][]byte
	Pages  int
}

type Extractor struct {
	logger logger.Logger
	opts   Options
}

func New(logger logger.Logger, opts Options) *Extractor {
	return &Extractor{logger: logger, opts: opts}
}

// Extract reads the text (and optionally the embedded images) of the PDF at path.
// The file is deleted afterwards whether or not extraction succeeded.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("file to extract does not exist", "path", path)
			return &Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return &Result{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("could not delete extracted file", "path", path, "err", err.Error())
		}
	}()

	if err := ctx.Err(); err != nil {
		return &Result{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &Result{}, fmt.Errorf("could not read %s: %w", path, err)
	}

	text, pages, err := extractText(data)
	if err != nil {
		e.logger.Error("could not extract text", "path", path, "err", err.Error())
		return &Result{}, err
	}

	result := &Result{Text: text, Pages: pages}

	if e.opts.ExtractImages {
		images, err := extractImages(data)
		if err != nil {
			e.logger.Warn("could not extract images, keeping text only", "path", path, "err", err.Error())
		} else {
			result.Images = images
		}
	}

	e.logger.Info("extracted file", "path", path, "pages", pages, "chars", len(text), "images", len(result.Images))
	return result, nil
}

// extractText concatenates the plain text of every page in order. Parser panics on malformed
// files are turned into errors.
func extractText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("could not parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("could not parse pdf: %w", err)
	}

	var buf strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("could not read page %d: %w", i, err)
		}
		buf.WriteString(content)
	}

	return buf.String(), pages, nil
}

// extractImages returns the raw bytes of embedded images, page by page.
func extractImages(data []byte) (images [][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			images, err = nil, fmt.Errorf("could not extract images: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageImages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("could not extract images: %w", err)
	}

	for _, byObject := range pageImages {
		objectNumbers := make([]int, 0, len(byObject))
		for objectNumber := range byObject {
			objectNumbers = append(objectNumbers, objectNumber)
		}
		sort.Ints(objectNumbers)

		for _, objectNumber := range objectNumbers {
			raw, err := io.ReadAll(byObject[objectNumber])
			if err != nil {
				return nil, fmt.Errorf("could not read image %d: %w", objectNumber, err)
			}
			images = append(images, raw)
		}
	}

	return images, nil
}
