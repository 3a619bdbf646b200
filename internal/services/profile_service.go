package services

import (
	"platefuel_backend/internal/dto"
	"platefuel_backend/internal/models"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ProfileService interface {
	// EnsureProfile provisions the profile for an identity on first sign-in.
	// Calling it again for the same identity is a no-op.
	EnsureProfile(db *gorm.DB, userID, email string) (*dto.EnsureProfileResponse, error)
	GetProfile(db *gorm.DB, userID string) (*models.Profile, error)
}

type profileService struct {
	profileRepo repositories.ProfileRepository
}

func NewProfileService(profileRepo repositories.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

func (s *profileService) EnsureProfile(db *gorm.DB, userID, email string) (*dto.EnsureProfileResponse, error) {
	if userID == "" {
		return nil, apperrors.NewBadRequestError("Missing user identity")
	}
	if email == "" {
		return nil, apperrors.NewBadRequestError("Identity has no email address")
	}

	existing, err := s.profileRepo.FindByUserID(db, userID)
	if err == nil {
		return &dto.EnsureProfileResponse{
			Created: false,
			Message: "Profile already exists",
			Profile: existing,
		}, nil
	}
	if err != repositories.ErrProfileNotFound {
		return nil, err
	}

	profile := &models.Profile{
		UserID:             userID,
		Email:              email,
		SubscriptionActive: false,
	}
	if err := s.profileRepo.Create(db, profile); err != nil {
		if err == repositories.ErrProfileAlreadyExists {
			// Lost a provisioning race; the other request won.
			existing, ferr := s.profileRepo.FindByUserID(db, userID)
			if ferr != nil {
				return nil, ferr
			}
			return &dto.EnsureProfileResponse{
				Created: false,
				Message: "Profile already exists",
				Profile: existing,
			}, nil
		}
		return nil, err
	}

	return &dto.EnsureProfileResponse{
		Created: true,
		Message: "Profile created",
		Profile: profile,
	}, nil
}

func (s *profileService) GetProfile(db *gorm.DB, userID string) (*models.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(db, userID)
	if err != nil {
		if err == repositories.ErrProfileNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	return profile, nil
}
