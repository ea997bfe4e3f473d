package business

import (
	"context"
	"fmt"
	"io"
	"strings"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

const (
	MaxPhotoSize = 10 << 20

	defaultHorseStatus = "active"
)

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type HorseInput struct {
	Name                string         `json:"name" label:"Name" validate:"notblank"`
	RegisteredName      string         `json:"registered_name"`
	Nickname            string         `json:"nickname"`
	Breed               string         `json:"breed" label:"Breed" validate:"notblank"`
	Gender              string         `json:"gender" label:"Gender" validate:"notblank,enum=horse_gender"`
	BirthDate           string         `json:"birth_date" label:"Birth date" validate:"omitempty,datetime=2006-01-02"`
	Color               string         `json:"color"`
	Markings            string         `json:"markings"`
	RegistrationNumber  string         `json:"registration_number"`
	MicrochipNumber     string         `json:"microchip_number"`
	PassportNumber      string         `json:"passport_number"`
	HeightHands         form.Number    `json:"height_hands" label:"Height" validate:"omitempty,gt=0"`
	WeightKg            form.Number    `json:"weight_kg" label:"Weight" validate:"omitempty,gt=0"`
	Status              string         `json:"status" label:"Status" validate:"omitempty,enum=horse_status"`
	Location            string         `json:"location"`
	OwnerName           string         `json:"owner_name"`
	OwnerContact        string         `json:"owner_contact"`
	InsuranceDetails    map[string]any `json:"insurance_details"`
	MedicalNotes        string         `json:"medical_notes"`
	DietaryRestrictions []string       `json:"dietary_restrictions"`
	Photos              []string       `json:"photos"`
	IsActive            form.Flag      `json:"is_active"`
}

// CreateHorses validates every horse and inserts them in one statement.
func (m *Manager) CreateHorses(ctx context.Context, owner Owner, horses []HorseInput) ([]database.Horse, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if len(horses) == 0 {
		return nil, &RequestError{
			Message: "At least one horse is required",
			Errors:  []string{"horses array cannot be empty"},
		}
	}
	if err := validateItems(m.validator, "Horse", horses); err != nil {
		return nil, err
	}

	params := make([]database.CreateHorseParams, 0, len(horses))
	for _, h := range horses {
		params = append(params, horseParams(owner, h))
	}

	created, err := m.store.CreateHorses(ctx, params)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to insert horses", "count", len(params), "error", err)
		return nil, &InsertError{Message: "Failed to insert horses into database", Err: err}
	}

	m.metrics.RecordRowsCreated(ctx, "horse", len(created))
	m.auditor.Record(ctx, audit.EventTypeHorsesCreated, map[string]any{
		"count":           len(created),
		"user_id":         owner.UserID,
		"organization_id": owner.OrganizationID,
	})
	return created, nil
}

func horseParams(owner Owner, h HorseInput) database.CreateHorseParams {
	status := strings.TrimSpace(h.Status)
	if status == "" {
		status = defaultHorseStatus
	}

	return database.CreateHorseParams{
		UserID:              owner.UserID,
		OrganizationID:      owner.OrganizationID,
		Name:                strings.TrimSpace(h.Name),
		RegisteredName:      util.NonEmpty(h.RegisteredName),
		Nickname:            util.NonEmpty(h.Nickname),
		Breed:               strings.TrimSpace(h.Breed),
		Gender:              h.Gender,
		BirthDate:           parseDate(h.BirthDate),
		Color:               util.NonEmpty(h.Color),
		Markings:            util.NonEmpty(h.Markings),
		RegistrationNumber:  util.NonEmpty(h.RegistrationNumber),
		MicrochipNumber:     util.NonEmpty(h.MicrochipNumber),
		PassportNumber:      util.NonEmpty(h.PassportNumber),
		HeightHands:         h.HeightHands.Optional(),
		WeightKg:            h.WeightKg.Optional(),
		Status:              status,
		Location:            util.NonEmpty(h.Location),
		OwnerName:           util.NonEmpty(h.OwnerName),
		OwnerContact:        util.NonEmpty(h.OwnerContact),
		InsuranceDetails:    objectOrEmpty(h.InsuranceDetails),
		MedicalNotes:        util.NonEmpty(h.MedicalNotes),
		DietaryRestrictions: trimmed(h.DietaryRestrictions),
		Photos:              trimmed(h.Photos),
		IsActive:            h.IsActive.Or(true),
		CreatedBy:           owner.UserID,
	}
}

// ListHorses lists the active horses of an organization, or of a user when
// no organization is given, newest first.
func (m *Manager) ListHorses(ctx context.Context, owner Owner) ([]database.Horse, error) {
	scope, err := listScope(owner)
	if err != nil {
		return nil, err
	}

	horses, err := m.store.ListHorses(ctx, database.ListHorsesParams{
		UserID:         scope.UserID,
		OrganizationID: scope.OrganizationID,
		IsActive:       util.Some(true),
	})
	if err != nil {
		return nil, fmt.Errorf("business: failed to list horses: %w", err)
	}
	return horses, nil
}

type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AddHorsePhoto stores an image and appends its URL to the horse's photos.
func (m *Manager) AddHorsePhoto(ctx context.Context, horseID uuid.UUID, upload PhotoUpload) (database.Horse, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.ContentType, ";", 2)[0]))
	ext, ok := photoContentTypes[contentType]
	if !ok {
		return database.Horse{}, &RequestError{Message: "Photo must be a JPEG, PNG or WebP image"}
	}
	if upload.Size > MaxPhotoSize {
		return database.Horse{}, &RequestError{Message: "Photo must be at most 10 MiB"}
	}

	if _, err := m.store.GetHorseByID(ctx, horseID); err != nil {
		return database.Horse{}, fmt.Errorf("business: failed to get horse: %w", err)
	}

	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		filename = "photo" + ext
	}

	key, err := m.photos.Store(ctx, "horses/"+horseID.String(), filename, upload.Content, upload.Size, contentType)
	if err != nil {
		return database.Horse{}, fmt.Errorf("business: failed to store photo: %w", err)
	}

	horse, err := m.store.AppendHorsePhoto(ctx, horseID, m.photos.URL(key))
	if err != nil {
		if delErr := m.photos.Delete(ctx, key); delErr != nil {
			m.logger.WarnContext(ctx, "Failed to remove orphaned photo", "key", key, "error", delErr)
		}
		return database.Horse{}, fmt.Errorf("business: failed to attach photo: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeHorsePhotoAdded, map[string]any{
		"horse_id": horseID,
		"key":      key,
	})
	return horse, nil
}
