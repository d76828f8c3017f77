package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/validate"
)

// MaxImageSize is the largest accepted avatar upload.
const MaxImageSize = 5 << 20

// ProfileService manages the current user's profile.
type ProfileService interface {
	Get(ctx context.Context) (model.Profile, error)
	Update(ctx context.Context, p model.ProfileUpdate) (model.Profile, error)
	ChangePassword(ctx context.Context, p model.PasswordChange) error
	// UploadImage sends an avatar; only images up to MaxImageSize are accepted.
	UploadImage(ctx context.Context, filename string, r io.Reader) (model.ImageUpload, error)
}

type ProfileServiceImpl struct {
	api    API
	v      *validate.Validator
	notify notify.Notifier
	form   validate.Submission
}

// NewProfileService constructs ProfileService.
func NewProfileService(api API, v *validate.Validator, n notify.Notifier) *ProfileServiceImpl {
	return &ProfileServiceImpl{api: api, v: v, notify: orNop(n)}
}

func (s *ProfileServiceImpl) Get(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	if err := s.api.JSON(ctx, http.MethodGet, "/profile", nil, nil, &p); err != nil {
		s.notify.Error("Failed to load profile")
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileServiceImpl) Update(ctx context.Context, p model.ProfileUpdate) (model.Profile, error) {
	p, err := s.v.Profile(p)
	if err != nil {
		return model.Profile{}, err
	}
	if err := s.form.Begin(); err != nil {
		return model.Profile{}, err
	}
	defer s.form.End()
	var out model.Profile
	if err := s.api.JSON(ctx, http.MethodPut, "/profile", nil, p, &out); err != nil {
		s.notify.Error(errs.Message(err, "Failed to update profile"))
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	s.notify.Success("Profile updated successfully!")
	return out, nil
}

func (s *ProfileServiceImpl) ChangePassword(ctx context.Context, p model.PasswordChange) error {
	p, err := s.v.Password(p)
	if err != nil {
		return err
	}
	if err := s.form.Begin(); err != nil {
		return err
	}
	defer s.form.End()
	if err := s.api.JSON(ctx, http.MethodPut, "/profile/password", nil, p, nil); err != nil {
		s.notify.Error(errs.Message(err, "Failed to change password"))
		return fmt.Errorf("change password: %w", err)
	}
	s.notify.Success("Password changed successfully!")
	return nil
}

func (s *ProfileServiceImpl) UploadImage(ctx context.Context, filename string, r io.Reader) (model.ImageUpload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return model.ImageUpload{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		s.notify.Error("File size must be less than 5MB")
		return model.ImageUpload{}, errs.FieldErrors{"file": "File size must be less than 5MB"}
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		s.notify.Error("Please select a valid image file")
		return model.ImageUpload{}, errs.FieldErrors{"file": "Please select a valid image file"}
	}

	var out model.ImageUpload
	if err := s.api.Upload(ctx, "/profile/image", "file", filepath.Base(filename), ct, data, &out); err != nil {
		s.notify.Error(errs.Message(err, "Failed to upload image"))
		return model.ImageUpload{}, fmt.Errorf("upload image: %w", err)
	}
	s.notify.Success("Avatar updated successfully!")
	return out, nil
}
