package models

import "time"

// Religion is the closed set of registrable religions.
type Religion string

const (
	ReligionIslam    Religion = "islam"
	ReligionKristen  Religion = "kristen"
	ReligionKatolik  Religion = "katolik"
	ReligionHindu    Religion = "hindu"
	ReligionBuddha   Religion = "buddha"
	ReligionKonghucu Religion = "konghucu"
	ReligionLainnya  Religion = "lainnya"
)

// MaritalStatus is the closed set of registrable marital statuses.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "belum_kawin"
	MaritalMarried  MaritalStatus = "kawin"
	MaritalDivorced MaritalStatus = "cerai_hidup"
	MaritalWidowed  MaritalStatus = "cerai_mati"
)

// BloodType is the closed set of registrable blood types.
type BloodType string

const (
	BloodA       BloodType = "a"
	BloodB       BloodType = "b"
	BloodAB      BloodType = "ab"
	BloodO       BloodType = "o"
	BloodUnknown BloodType = "tidak_tahu"
)

// IDCard is a national identity card record keyed by the unique NIK.
type IDCard struct {
	ID            string        `db:"id" json:"id"`
	NIK           string        `db:"nik" json:"nik"`
	Address       string        `db:"address" json:"address"`
	BirthPlace    string        `db:"birth_place" json:"birth_place"`
	BirthDate     time.Time     `db:"birth_date" json:"birth_date"`
	Sex           Sex           `db:"sex" json:"sex"`
	Religion      Religion      `db:"religion" json:"religion"`
	MaritalStatus MaritalStatus `db:"marital_status" json:"marital_status"`
	BloodType     BloodType     `db:"blood_type" json:"blood_type"`
	Occupation    string        `db:"occupation" json:"occupation"`
	Nationality   string        `db:"nationality" json:"nationality"`
	IssuerID      string        `db:"issuer_id" json:"issuer_id"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateIDCardRequest is the payload for registering an identity card.
type CreateIDCardRequest struct {
	NIK           string        `json:"nik" validate:"required,len=16,numeric"`
	Address       string        `json:"address" validate:"required"`
	BirthPlace    string        `json:"birth_place" validate:"required"`
	BirthDate     time.Time     `json:"birth_date" validate:"required"`
	Sex           Sex           `json:"sex" validate:"required,oneof=male female"`
	Religion      Religion      `json:"religion" validate:"required,oneof=islam kristen katolik hindu buddha konghucu lainnya"`
	MaritalStatus MaritalStatus `json:"marital_status" validate:"required,oneof=belum_kawin kawin cerai_hidup cerai_mati"`
	BloodType     BloodType     `json:"blood_type" validate:"required,oneof=a b ab o tidak_tahu"`
	Occupation    string        `json:"occupation"`
	Nationality   string        `json:"nationality"`
	IssuerID      string        `json:"-"`
}

// UpdateIDCardRequest is the payload for updating an identity card.
type UpdateIDCardRequest struct {
	NIK           string        `json:"nik" validate:"required,len=16,numeric"`
	Address       string        `json:"address" validate:"required"`
	BirthPlace    string        `json:"birth_place" validate:"required"`
	BirthDate     time.Time     `json:"birth_date" validate:"required"`
	Sex           Sex           `json:"sex" validate:"required,oneof=male female"`
	Religion      Religion      `json:"religion" validate:"required,oneof=islam kristen katolik hindu buddha konghucu lainnya"`
	MaritalStatus MaritalStatus `json:"marital_status" validate:"required,oneof=belum_kawin kawin cerai_hidup cerai_mati"`
	BloodType     BloodType     `json:"blood_type" validate:"required,oneof=a b ab o tidak_tahu"`
	Occupation    string        `json:"occupation"`
	Nationality   string        `json:"nationality"`
}

// IDCardFilter captures list criteria for ID cards.
type IDCardFilter struct {
	Religion      *Religion
	MaritalStatus *MaritalStatus
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
