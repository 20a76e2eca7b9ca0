package ml

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	EducationGraduate    = "Graduate"
	EducationNotGraduate = "Not Graduate"
	SelfEmployedYes      = "Yes"
	SelfEmployedNo       = "No"
)

// Applicant holds the raw attributes of one loan application.
type Applicant struct {
	NoOfDependents         float64 `json:"no_of_dependents"`
	Education              string  `json:"education"`
	SelfEmployed           string  `json:"self_employed"`
	IncomeAnnum            float64 `json:"income_annum"`
	LoanAmount             float64 `json:"loan_amount"`
	LoanTerm               float64 `json:"loan_term"`
	CibilScore             float64 `json:"cibil_score"`
	ResidentialAssetsValue float64 `json:"residential_assets_value"`
	CommercialAssetsValue  float64 `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64 `json:"luxury_assets_value"`
	BankAssetValue         float64 `json:"bank_asset_value"`
}

// QuickApplicant is the partial form used for a fast trial classification.
type QuickApplicant struct {
	Education    string  `json:"education"`
	SelfEmployed string  `json:"self_employed"`
	IncomeAnnum  float64 `json:"income_annum"`
	LoanAmount   float64 `json:"loan_amount"`
}

func EncodeEducation(education string) float64 {
	if education == EducationGraduate {
		return 1
	}
	return 0
}

func EncodeSelfEmployed(selfEmployed string) float64 {
	if selfEmployed == SelfEmployedYes {
		return 1
	}
	return 0
}

// Encode maps an applicant onto ApplicantSchema.
func Encode(a Applicant) FeatureRow {
	return FeatureRow{
		a.NoOfDependents,
		EncodeEducation(a.Education),
		EncodeSelfEmployed(a.SelfEmployed),
		a.IncomeAnnum,
		a.LoanAmount,
		a.LoanTerm,
		a.CibilScore,
		a.ResidentialAssetsValue,
		a.CommercialAssetsValue,
		a.LuxuryAssetsValue,
		a.BankAssetValue,
	}
}

// EncodeQuick fills the fields the quick form does not ask for with fixed
// defaults: no dependents, a one year term, zero score and zero assets.
// The result is a shortcut, not an estimate of the missing values.
func EncodeQuick(q QuickApplicant) FeatureRow {
	return Encode(Applicant{
		NoOfDependents: 0,
		Education:      q.Education,
		SelfEmployed:   q.SelfEmployed,
		IncomeAnnum:    q.IncomeAnnum,
		LoanAmount:     q.LoanAmount,
		LoanTerm:       1,
	})
}

var categoricalEncoders = map[string]func(string) float64{
	"education":     EncodeEducation,
	"self_employed": EncodeSelfEmployed,
}

// EncodeAttributes encodes loosely typed attributes (decoded JSON, form
// values) against schema. Every column must be present and no other key is
// accepted. Categorical columns take their enumerated strings; a number
// already encoded as 0/1 is passed through.
func EncodeAttributes(schema Schema, attrs map[string]any) (FeatureRow, error) {
	var unknown []string
	for key := range attrs {
		if schema.Index(key) < 0 {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s has no fields %v", ErrSchemaMismatch, schema.Name, unknown)
	}

	row := make(FeatureRow, schema.Width())
	for i, column := range schema.Columns {
		raw, ok := attrs[column]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrSchemaMismatch, column)
		}
		value, err := attributeValue(column, raw)
		if err != nil {
			return nil, err
		}
		row[i] = value
	}
	return row, nil
}

func attributeValue(column string, raw any) (float64, error) {
	value, err := numericValue(column, raw)
	if err != nil {
		return 0, err
	}
	if _, ok := categoricalEncoders[column]; ok && value != 0 && value != 1 {
		return 0, fmt.Errorf("%w: field %s must be 0 or 1, got %v", ErrSchemaMismatch, column, raw)
	}
	return value, nil
}

func numericValue(column string, raw any) (float64, error) {
	switch v := raw.(type) {
	case string:
		if encode, ok := categoricalEncoders[column]; ok {
			return encode(v), nil
		}
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: field %s has unsupported value %v", ErrSchemaMismatch, column, raw)
}
