package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/romariotrain/visa-docs/internal/media/domain"
)

const (
	multipartMemory = 8 << 20
	// envelopeSlack leaves room for multipart headers and the category field
	// so an oversized file is reported by size, not as a broken upload.
	envelopeSlack = 1 << 20
)

// UploadRules is the upload policy: extension allow-list and size ceiling.
type UploadRules struct {
	AllowedTypes  []string
	MaxFileSizeMB int
}

func (r UploadRules) maxBytes() int64 {
	return int64(r.MaxFileSizeMB) << 20
}

func (r UploadRules) allows(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return false
	}
	for _, t := range r.AllowedTypes {
		if strings.EqualFold(strings.TrimSpace(t), ext) {
			return true
		}
	}
	return false
}

func (r UploadRules) typesMessage() string {
	return fmt.Sprintf("Allowed file types: %s.", strings.Join(r.AllowedTypes, ", "))
}

func (r UploadRules) maxMessage() string {
	return fmt.Sprintf("The file may not be greater than %dMB.", r.MaxFileSizeMB)
}

const (
	msgFileRequired     = "Please upload a file."
	msgFileUploadFailed = "Failed to upload the file. Please try again."
	msgCategoryRequired = "Please select a category."
	msgCategoryInvalid  = "The selected category is invalid."
)

// ValidationErrors collects field messages in the order they were added.
type ValidationErrors struct {
	fields []string
	errs   map[string][]string
}

func (v *ValidationErrors) Add(field, message string) {
	if v.errs == nil {
		v.errs = make(map[string][]string)
	}
	if _, ok := v.errs[field]; !ok {
		v.fields = append(v.fields, field)
	}
	v.errs[field] = append(v.errs[field], message)
}

func (v *ValidationErrors) Empty() bool {
	return len(v.fields) == 0
}

func (v *ValidationErrors) Has(field string) bool {
	_, ok := v.errs[field]
	return ok
}

// Message is the first message, with a count of the rest.
func (v *ValidationErrors) Message() string {
	if v.Empty() {
		return ""
	}
	total := 0
	for _, msgs := range v.errs {
		total += len(msgs)
	}
	first := v.errs[v.fields[0]][0]
	switch rest := total - 1; rest {
	case 0:
		return first
	case 1:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
}

func (v *ValidationErrors) Error() string {
	return v.Message()
}

func (v *ValidationErrors) response() validationResponse {
	errs := make(map[string][]string, len(v.errs))
	for k, msgs := range v.errs {
		errs[k] = append([]string(nil), msgs...)
	}
	return validationResponse{Message: v.Message(), Errors: errs}
}

type uploadRequest struct {
	File     *multipart.FileHeader
	Category domain.Category
}

// parseUpload reads the multipart form and applies the upload policy.
// The request body must already be limited with http.MaxBytesReader.
func (r UploadRules) parseUpload(req *http.Request) (*uploadRequest, *ValidationErrors) {
	verrs := &ValidationErrors{}

	if err := req.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			verrs.Add("file", r.maxMessage())
		} else {
			verrs.Add("file", msgFileUploadFailed)
		}
		return nil, verrs
	}

	var fh *multipart.FileHeader
	if form := req.MultipartForm; form != nil {
		if files := form.File["file"]; len(files) > 0 {
			fh = files[0]
		}
	}

	switch {
	case fh == nil || fh.Size == 0:
		verrs.Add("file", msgFileRequired)
	default:
		if !r.allows(filepath.Ext(fh.Filename)) {
			verrs.Add("file", r.typesMessage())
		}
		if fh.Size > r.maxBytes() {
			verrs.Add("file", r.maxMessage())
		}
	}

	var category domain.Category
	raw := strings.TrimSpace(req.PostFormValue("category"))
	if raw == "" {
		verrs.Add("category", msgCategoryRequired)
	} else if c, err := domain.ParseCategory(raw); err != nil {
		verrs.Add("category", msgCategoryInvalid)
	} else {
		category = c
	}

	if !verrs.Empty() {
		return nil, verrs
	}
	return &uploadRequest{File: fh, Category: category}, nil
}
