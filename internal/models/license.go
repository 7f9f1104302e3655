package models

import "time"

// Sex is the registered sex of a record holder.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// LicenseClass is the closed set of driving-license classes. Each class
// carries its own minimum holder age.
type LicenseClass string

const (
	ClassA       LicenseClass = "A"
	ClassAUmum   LicenseClass = "A_UMUM"
	ClassBI      LicenseClass = "BI"
	ClassBIUmum  LicenseClass = "BI_UMUM"
	ClassBII     LicenseClass = "BII"
	ClassBIIUmum LicenseClass = "BII_UMUM"
	ClassC       LicenseClass = "C"
	ClassCI      LicenseClass = "CI"
	ClassCII     LicenseClass = "CII"
	ClassD       LicenseClass = "D"
	ClassDI      LicenseClass = "DI"
)

// licenseClassMinAge is the statutory minimum holder age per class.
var licenseClassMinAge = map[LicenseClass]int{
	ClassA:       17,
	ClassC:       17,
	ClassD:       17,
	ClassDI:      17,
	ClassCI:      18,
	ClassCII:     19,
	ClassAUmum:   20,
	ClassBI:      20,
	ClassBII:     21,
	ClassBIUmum:  22,
	ClassBIIUmum: 23,
}

// MinAge returns the minimum holder age for the class, or false for an
// unknown class.
func (c LicenseClass) MinAge() (int, bool) {
	age, ok := licenseClassMinAge[c]
	return age, ok
}

// Valid reports whether c is a known license class.
func (c LicenseClass) Valid() bool {
	_, ok := licenseClassMinAge[c]
	return ok
}

// License is a driving-license record. Number is derived from the
// holder's identity data at issuance and never changes afterwards.
type License struct {
	ID         string       `db:"id" json:"id"`
	Number     string       `db:"license_number" json:"license_number"`
	FullName   string       `db:"full_name" json:"full_name"`
	NIK        string       `db:"nik" json:"nik"`
	RT         string       `db:"rt" json:"rt"`
	RW         string       `db:"rw" json:"rw"`
	District   string       `db:"district" json:"district"`
	Regency    string       `db:"regency" json:"regency"`
	Province   string       `db:"province" json:"province"`
	Class      LicenseClass `db:"class" json:"class"`
	ExpiryDate time.Time    `db:"expiry_date" json:"expiry_date"`
	Sex        Sex          `db:"sex" json:"sex"`
	BloodType  string       `db:"blood_type" json:"blood_type"`
	BirthPlace string       `db:"birth_place" json:"birth_place"`
	BirthDate  time.Time    `db:"birth_date" json:"birth_date"`
	Occupation string       `db:"occupation" json:"occupation"`
	PhotoPath  string       `db:"photo_path" json:"photo_path"`
	IssuerID   string       `db:"issuer_id" json:"issuer_id"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// IssueLicenseRequest is the payload for issuing a new license. The
// license number is derived server-side and never part of the request.
type IssueLicenseRequest struct {
	FullName   string       `json:"full_name" validate:"required"`
	NIK        string       `json:"nik" validate:"required,len=16,numeric"`
	RT         string       `json:"rt" validate:"required"`
	RW         string       `json:"rw" validate:"required"`
	District   string       `json:"district" validate:"required"`
	Regency    string       `json:"regency" validate:"required"`
	Province   string       `json:"province" validate:"required"`
	Class      LicenseClass `json:"class" validate:"required"`
	Sex        Sex          `json:"sex" validate:"required,oneof=male female"`
	BloodType  string       `json:"blood_type"`
	BirthPlace string       `json:"birth_place" validate:"required"`
	BirthDate  time.Time    `json:"birth_date" validate:"required"`
	Occupation string       `json:"occupation"`
	PhotoPath  string       `json:"photo_path"`
	ExpiryDate time.Time    `json:"expiry_date"`
	IssuerID   string       `json:"-"`
}

// UpdateLicenseRequest is the payload for updating an existing license.
type UpdateLicenseRequest struct {
	FullName   string       `json:"full_name" validate:"required"`
	NIK        string       `json:"nik" validate:"required,len=16,numeric"`
	RT         string       `json:"rt" validate:"required"`
	RW         string       `json:"rw" validate:"required"`
	District   string       `json:"district" validate:"required"`
	Regency    string       `json:"regency" validate:"required"`
	Province   string       `json:"province" validate:"required"`
	Class      LicenseClass `json:"class" validate:"required"`
	Sex        Sex          `json:"sex" validate:"required,oneof=male female"`
	BloodType  string       `json:"blood_type"`
	BirthPlace string       `json:"birth_place" validate:"required"`
	BirthDate  time.Time    `json:"birth_date" validate:"required"`
	Occupation string       `json:"occupation"`
	PhotoPath  string       `json:"photo_path"`
	ExpiryDate time.Time    `json:"expiry_date"`
}

// LicenseNumberBreakdown is the decoded view of a license number.
type LicenseNumberBreakdown struct {
	Number     string `json:"number"`
	Region     string `json:"region"`
	BirthDay   int    `json:"birth_day"`
	BirthMonth int    `json:"birth_month"`
	BirthYear  int    `json:"birth_year"`
	Sex        Sex    `json:"sex"`
	Sequence   int    `json:"sequence"`
}

// LicenseFilter captures list criteria for licenses.
type LicenseFilter struct {
	Class     *LicenseClass
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
