package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"bistro/internal/core"
	"bistro/internal/ledger"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 10 << 20
	uploadField    = "file"
)

var errEmptyUpload = errors.New("empty upload")

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// readUpload returns the uploaded file contents. It accepts a multipart form
// with a "file" part or the raw request body.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var src io.Reader = r.Body
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("parse upload: %w", err)
		}
		f, _, err := r.FormFile(uploadField)
		if err != nil {
			return nil, fmt.Errorf("missing %q part: %w", uploadField, err)
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyUpload
	}
	return data, nil
}

// parseOptionalType accepts "", INCOME or EXPENSE in any case.
func parseOptionalType(s string) (core.TransactionType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	return core.ParseTransactionType(strings.ToUpper(s))
}

// parseFilter reads the list view query: type, sub, q and method.
func parseFilter(q url.Values) (ledger.Filter, error) {
	typ, err := parseOptionalType(q.Get("type"))
	if err != nil {
		return ledger.Filter{}, err
	}
	sub, err := ledger.ParseSubFilter(q.Get("sub"))
	if err != nil {
		return ledger.Filter{}, err
	}
	return ledger.Filter{
		Type:          typ,
		SubFilter:     sub,
		Search:        sanitizeInput(q.Get("q")),
		PaymentMethod: sanitizeInput(q.Get("method")),
	}, nil
}

// clearRequest is the body of POST /api/transactions/clear.
type clearRequest struct {
	Type      string `json:"type"`
	Passcode  string `json:"passcode"`
	Confirmed bool   `json:"confirmed"`
}

func (c clearRequest) parse() (core.TransactionType, ledger.Confirmation, error) {
	typ, err := parseOptionalType(c.Type)
	if err != nil {
		return "", ledger.Confirmation{}, err
	}
	if typ == "" {
		return "", ledger.Confirmation{}, fmt.Errorf("%w: type is required", core.ErrInvalidType)
	}
	return typ, ledger.Confirmation{Passcode: c.Passcode, Confirmed: c.Confirmed}, nil
}
