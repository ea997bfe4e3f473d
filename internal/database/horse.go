package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Horse struct {
	ID                  uuid.UUID                `json:"id"`
	UserID              util.Optional[uuid.UUID] `json:"user_id"`
	OrganizationID      util.Optional[uuid.UUID] `json:"organization_id"`
	Name                string                   `json:"name"`
	RegisteredName      util.Optional[string]    `json:"registered_name"`
	Nickname            util.Optional[string]    `json:"nickname"`
	Breed               string                   `json:"breed"`
	Gender              string                   `json:"gender"`
	BirthDate           util.Optional[time.Time] `json:"birth_date"`
	Color               util.Optional[string]    `json:"color"`
	Markings            util.Optional[string]    `json:"markings"`
	RegistrationNumber  util.Optional[string]    `json:"registration_number"`
	MicrochipNumber     util.Optional[string]    `json:"microchip_number"`
	PassportNumber      util.Optional[string]    `json:"passport_number"`
	HeightHands         util.Optional[float64]   `json:"height_hands"`
	WeightKg            util.Optional[float64]   `json:"weight_kg"`
	Status              string                   `json:"status"`
	Location            util.Optional[string]    `json:"location"`
	OwnerName           util.Optional[string]    `json:"owner_name"`
	OwnerContact        util.Optional[string]    `json:"owner_contact"`
	InsuranceDetails    map[string]any           `json:"insurance_details"`
	MedicalNotes        util.Optional[string]    `json:"medical_notes"`
	DietaryRestrictions []string                 `json:"dietary_restrictions"`
	Photos              []string                 `json:"photos"`
	IsActive            bool                     `json:"is_active"`
	CreatedBy           util.Optional[uuid.UUID] `json:"created_by"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

var horseColumnList = []string{
	"id", "user_id", "organization_id", "name", "registered_name", "nickname", "breed", "gender", "birth_date", "color", "markings",
	"registration_number", "microchip_number", "passport_number", "height_hands", "weight_kg", "status", "location", "owner_name",
	"owner_contact", "insurance_details", "medical_notes", "dietary_restrictions", "photos", "is_active", "created_by", "created_at", "updated_at",
}

var horseColumns = strings.Join(horseColumnList, ", ")

func (h *Horse) fields() []any {
	return []any{h.ID, h.UserID, h.OrganizationID, h.Name, h.RegisteredName, h.Nickname, h.Breed, h.Gender, h.BirthDate, h.Color, h.Markings,
		h.RegistrationNumber, h.MicrochipNumber, h.PassportNumber, h.HeightHands, h.WeightKg, h.Status, h.Location, h.OwnerName,
		h.OwnerContact, h.InsuranceDetails, h.MedicalNotes, h.DietaryRestrictions, h.Photos, h.IsActive, h.CreatedBy, h.CreatedAt, h.UpdatedAt}
}

func scanHorse(row pgx.Row) (Horse, error) {
	var h Horse
	err := row.Scan(&h.ID, &h.UserID, &h.OrganizationID, &h.Name, &h.RegisteredName, &h.Nickname, &h.Breed, &h.Gender, &h.BirthDate, &h.Color, &h.Markings,
		&h.RegistrationNumber, &h.MicrochipNumber, &h.PassportNumber, &h.HeightHands, &h.WeightKg, &h.Status, &h.Location, &h.OwnerName,
		&h.OwnerContact, &h.InsuranceDetails, &h.MedicalNotes, &h.DietaryRestrictions, &h.Photos, &h.IsActive, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

type CreateHorseParams struct {
	UserID              util.Optional[uuid.UUID]
	OrganizationID      util.Optional[uuid.UUID]
	Name                string
	RegisteredName      util.Optional[string]
	Nickname            util.Optional[string]
	Breed               string
	Gender              string
	BirthDate           util.Optional[time.Time]
	Color               util.Optional[string]
	Markings            util.Optional[string]
	RegistrationNumber  util.Optional[string]
	MicrochipNumber     util.Optional[string]
	PassportNumber      util.Optional[string]
	HeightHands         util.Optional[float64]
	WeightKg            util.Optional[float64]
	Status              string
	Location            util.Optional[string]
	OwnerName           util.Optional[string]
	OwnerContact        util.Optional[string]
	InsuranceDetails    map[string]any
	MedicalNotes        util.Optional[string]
	DietaryRestrictions []string
	Photos              []string
	IsActive            bool
	CreatedBy           util.Optional[uuid.UUID]
}

// CreateHorses inserts every horse with a single statement so the batch is all or nothing.
func (db *Database) CreateHorses(ctx context.Context, params []CreateHorseParams) ([]Horse, error) {
	if len(params) == 0 {
		return []Horse{}, nil
	}

	now := time.Now().UTC()
	horses := make([]Horse, 0, len(params))
	args := make([]any, 0, len(params)*len(horseColumnList))
	for _, p := range params {
		h := Horse{
			ID:                  uuid.New(),
			UserID:              p.UserID,
			OrganizationID:      p.OrganizationID,
			Name:                p.Name,
			RegisteredName:      p.RegisteredName,
			Nickname:            p.Nickname,
			Breed:               p.Breed,
			Gender:              p.Gender,
			BirthDate:           p.BirthDate,
			Color:               p.Color,
			Markings:            p.Markings,
			RegistrationNumber:  p.RegistrationNumber,
			MicrochipNumber:     p.MicrochipNumber,
			PassportNumber:      p.PassportNumber,
			HeightHands:         p.HeightHands,
			WeightKg:            p.WeightKg,
			Status:              p.Status,
			Location:            p.Location,
			OwnerName:           p.OwnerName,
			OwnerContact:        p.OwnerContact,
			InsuranceDetails:    p.InsuranceDetails,
			MedicalNotes:        p.MedicalNotes,
			DietaryRestrictions: p.DietaryRestrictions,
			Photos:              p.Photos,
			IsActive:            p.IsActive,
			CreatedBy:           p.CreatedBy,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if h.InsuranceDetails == nil {
			h.InsuranceDetails = map[string]any{}
		}
		if h.DietaryRestrictions == nil {
			h.DietaryRestrictions = []string{}
		}
		if h.Photos == nil {
			h.Photos = []string{}
		}
		horses = append(horses, h)
		args = append(args, h.fields()...)
	}

	query := `INSERT INTO tbl_horse (` + horseColumns + `) VALUES ` + valuesPlaceholders(len(horses), len(horseColumnList))
	if _, err := db.conn().Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("database: failed to insert %d horses: %w", len(horses), classify(err))
	}
	return horses, nil
}

func (db *Database) GetHorseByID(ctx context.Context, id uuid.UUID) (Horse, error) {
	h, err := scanHorse(db.conn().QueryRow(ctx, `SELECT `+horseColumns+` FROM tbl_horse WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return h, ErrHorseNotFound
		}
		return h, fmt.Errorf("database: failed to scan horse: %w", err)
	}
	return h, nil
}

type ListHorsesParams struct {
	UserID         util.Optional[uuid.UUID]
	OrganizationID util.Optional[uuid.UUID]
	IsActive       util.Optional[bool]
}

// ListHorses lists horses newest first.
func (db *Database) ListHorses(ctx context.Context, params ListHorsesParams) ([]Horse, error) {
	b := newWhereBuilder(`SELECT ` + horseColumns + ` FROM tbl_horse`)
	if params.UserID.IsSet {
		b.and("user_id = $%d", params.UserID.Val)
	}
	if params.OrganizationID.IsSet {
		b.and("organization_id = $%d", params.OrganizationID.Val)
	}
	if params.IsActive.IsSet {
		b.and("is_active = $%d", params.IsActive.Val)
	}
	b.raw(" ORDER BY created_at DESC")

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list horses: %w", err)
	}
	defer rows.Close()

	horses := []Horse{}
	for rows.Next() {
		h, err := scanHorse(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan horse: %w", err)
		}
		horses = append(horses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate horses: %w", err)
	}
	return horses, nil
}

func (db *Database) AppendHorsePhoto(ctx context.Context, id uuid.UUID, url string) (Horse, error) {
	h, err := scanHorse(db.conn().QueryRow(ctx, `UPDATE tbl_horse SET photos = array_append(photos, $2), updated_at = NOW() WHERE id = $1 RETURNING `+horseColumns, id, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return h, ErrHorseNotFound
		}
		return h, fmt.Errorf("database: failed to append horse photo (id=%s): %w", id, err)
	}
	return h, nil
}
