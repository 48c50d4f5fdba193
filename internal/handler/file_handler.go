package handler

import (
	"net/http"

	"blogclient/internal/app/media"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/req"
	"blogclient/internal/pkg/resp"
)

// HandleUpload forwards the "file" field of a multipart form to the media API.
// The optional "kind" field (image or video) restricts what is accepted;
// without it the endpoint is chosen by MIME type.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var expected media.Kind
		switch kind := media.Kind(r.FormValue("kind")); kind {
		case "":
		case media.KindImage, media.KindVideo:
			expected = kind
		default:
			resp.RespondError(w, r, errs.Validation(map[string]string{"kind": "Kind must be image or video"}))
			return
		}

		file, customErr := uploadedFile(r, "file")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		m, customErr := deps.API.UploadMedia(r.Context(), deps.viewer(r).Token, file, expected)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, m)
	}
}
