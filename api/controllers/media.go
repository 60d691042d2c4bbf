package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/internal/media"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const (
	uploadFormField = "file"
	multipartSlack  = 1 << 20
)

// PublicUpload stores one item photo and returns its public URL.
func PublicUpload(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "photo uploads are not configured"))
			return
		}
		if maxBytes <= 0 {
			maxBytes = media.DefaultMaxBytes
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is too large").
					WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field \"file\" is required"))
			return
		}
		defer file.Close()

		result, err := svc.Upload(r.Context(), header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
