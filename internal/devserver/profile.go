package devserver

import (
	"io"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"

	pkgcrypto "github.com/and161185/flasheng/internal/crypto"
	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
)

// maxImageSize matches the client-side avatar limit.
const maxImageSize = 5 << 20

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type passwordBody struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	a, ok := s.db.account(caller(r))
	if !ok {
		s.fail(w, r, notFound("User"))
		return
	}
	writeJSON(w, http.StatusOK, a.profile())
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.ProfileUpdate
	if err := decodeJSON(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.v.Profile(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.db.updateAccount(caller(r), p.Email, func(a *account) {
		a.Name, a.Email, a.Phone = p.Name, p.Email, p.Phone
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.profile())
}

// updateUser serves PUT /users/{id}; callers may edit themselves, admins anyone.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if uid := caller(r); uid != id && !s.db.isAdmin(uid) {
		s.fail(w, r, failf(http.StatusForbidden, "Access denied"))
		return
	}
	var p model.ProfilePatch
	if err := decodeJSON(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.v.ProfilePatch(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.db.updateAccount(id, p.Email, func(a *account) {
		a.Name, a.Email = p.FullName, p.Email
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.auth(""))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var b passwordBody
	if err := decodeJSON(r, &b); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.v.Struct(b); err != nil {
		s.fail(w, r, err)
		return
	}
	uid := caller(r)
	a, ok := s.db.account(uid)
	if !ok {
		s.fail(w, r, notFound("User"))
		return
	}
	if ok, _ := pkgcrypto.VerifyPassword(b.CurrentPassword, a.PwdHash); !ok {
		s.fail(w, r, failf(http.StatusBadRequest, "Current password is incorrect"))
		return
	}
	hash, err := pkgcrypto.HashPassword(b.NewPassword, s.cfg.Hash)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.db.updateAccount(uid, "", func(a *account) { a.PwdHash = hash }); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadImage stores a multipart "file" image as the caller's avatar.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	f, _, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, failf(http.StatusBadRequest, "File is required"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		s.fail(w, r, failf(http.StatusBadRequest, "File is required"))
		return
	}
	if len(data) > maxImageSize {
		s.fail(w, r, errs.FieldErrors{"file": "File size must be less than 5MB"})
		return
	}
	ct := http.DetectContentType(data)
	ext, ok := imageExt[ct]
	if !ok {
		s.fail(w, r, errs.FieldErrors{"file": "Please select a valid image file"})
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := id.String() + ext
	s.db.putImage(name, image{contentType: ct, data: data})

	url := "/api/uploads/" + name
	if _, err := s.db.updateAccount(caller(r), "", func(a *account) { a.ImageURL = url }); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ImageUpload{ImageURL: url})
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	img, ok := s.db.image(mux.Vars(r)["name"])
	if !ok {
		s.fail(w, r, notFound("Image"))
		return
	}
	w.Header().Set("Content-Type", img.contentType)
	_, _ = w.Write(img.data)
}
