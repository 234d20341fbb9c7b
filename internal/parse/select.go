package parse

import (
	"errors"
	"fmt"
	"strings"

	"movers/internal/domain"
	"movers/internal/extract"
)

// Backend locates a table body in a raw HTML document.
type Backend interface {
	Name() string
	Locate(doc []byte) (extract.TableBody, error)
}

// Default returns the primary goquery backend followed by the x/net/html
// fallback.
func Default(selector string) []Backend {
	return []Backend{NewGoqueryBackend(selector), NodeBackend{}}
}

// Select tries each backend in order and returns the first located body
// along with the name of the backend that found it. When every backend
// fails the error wraps domain.ErrDocumentLocate.
func Select(doc []byte, backends ...Backend) (extract.TableBody, string, error) {
	if len(backends) == 0 {
		backends = Default("")
	}

	var tried []string
	var errs []error
	for _, b := range backends {
		body, err := b.Locate(doc)
		if err == nil {
			return body, b.Name(), nil
		}
		tried = append(tried, b.Name())
		if !errors.Is(err, domain.ErrDocumentLocate) {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}

	err := fmt.Errorf("%w (tried %s)", domain.ErrDocumentLocate, strings.Join(tried, ", "))
	if len(errs) > 0 {
		return nil, "", errors.Join(append([]error{err}, errs...)...)
	}
	return nil, "", err
}
