package domain

import (
	"fmt"
	"strings"
)

// FieldsVersion is bumped whenever a field is added to or removed from the vocabulary.
const FieldsVersion = 1

// Field is a member of the canonical statistic vocabulary shared by every source.
// Its string form doubles as the column name of the aggregated table.
type Field int

const (
	Unknown Field = iota

	State
	FetchTimestamp
	Timestamp
	Date

	Positive
	Negative
	Confirmed
	Total
	Inconclusive
	Probable
	Pending

	AntibodyPos
	AntibodyNeg
	AntibodyTotal
	AntibodyPosPeople
	AntibodyNegPeople
	AntibodyTotalPeople
	AntibodyByCollectionDate
	AntibodyPosByCollectionDate
	AntibodyNegByCollectionDate
	AntibodyPeopleByCollectionDate
	AntibodyPosPeopleByCollectionDate

	Specimens
	SpecimensPos
	SpecimensNeg
	PCRTestEncounters
	PCRByCollectionDate
	PCRPosByCollectionDate
	PCRNegByCollectionDate
	PCRPeopleByCollectionDate

	Death
	DeathConfirmed
	DeathProbable
	DeathByDateOfDeath
	DeathConfirmedByDateOfDeath
	DeathProbableByDateOfDeath

	Hosp
	ICU
	Vent
	CurrHosp
	CurrICU
	CurrVent

	Recovered

	AntigenTotal
	AntigenPos
	AntigenNeg
	AntigenTotalPeople
	AntigenPosPeople
	AntigenNegPeople
	AntigenByCollectionDate
	AntigenPosByCollectionDate
	AntigenNegByCollectionDate
	AntigenPeopleByCollectionDate
	AntigenPosPeopleByCollectionDate

	Window
	PPR
	Units
	SID

	fieldCount
)

var fieldNames = [fieldCount]string{
	Unknown: "UNKNOWN",

	State:          "STATE",
	FetchTimestamp: "FETCH_TIMESTAMP",
	Timestamp:      "TIMESTAMP",
	Date:           "DATE",

	Positive:     "POSITIVE",
	Negative:     "NEGATIVE",
	Confirmed:    "CONFIRMED",
	Total:        "TOTAL",
	Inconclusive: "INCONCLUSIVE",
	Probable:     "PROBABLE",
	Pending:      "PENDING",

	AntibodyPos:                       "ANTIBODY_POS",
	AntibodyNeg:                       "ANTIBODY_NEG",
	AntibodyTotal:                     "ANTIBODY_TOTAL",
	AntibodyPosPeople:                 "ANTIBODY_POS_PEOPLE",
	AntibodyNegPeople:                 "ANTIBODY_NEG_PEOPLE",
	AntibodyTotalPeople:               "ANTIBODY_TOTAL_PEOPLE",
	AntibodyByCollectionDate:          "ANTIBODY_BY_COLLECTION_DATE",
	AntibodyPosByCollectionDate:       "ANTIBODY_POS_BY_COLLECTION_DATE",
	AntibodyNegByCollectionDate:       "ANTIBODY_NEG_BY_COLLECTION_DATE",
	AntibodyPeopleByCollectionDate:    "ANTIBODY_PEOPLE_BY_COLLECTION_DATE",
	AntibodyPosPeopleByCollectionDate: "ANTIBODY_POS_PEOPLE_BY_COLLECTION_DATE",

	Specimens:                 "SPECIMENS",
	SpecimensPos:              "SPECIMENS_POS",
	SpecimensNeg:              "SPECIMENS_NEG",
	PCRTestEncounters:         "PCR_TEST_ENCOUNTERS",
	PCRByCollectionDate:       "PCR_BY_COLLECTION_DATE",
	PCRPosByCollectionDate:    "PCR_POS_BY_COLLECTION_DATE",
	PCRNegByCollectionDate:    "PCR_NEG_BY_COLLECTION_DATE",
	PCRPeopleByCollectionDate: "PCR_PEOPLE_BY_COLLECTION_DATE",

	Death:                       "DEATH",
	DeathConfirmed:              "DEATH_CONFIRMED",
	DeathProbable:               "DEATH_PROBABLE",
	DeathByDateOfDeath:          "DEATH_BY_DATE_OF_DEATH",
	DeathConfirmedByDateOfDeath: "DEATH_CONFIRMED_BY_DATE_OF_DEATH",
	DeathProbableByDateOfDeath:  "DEATH_PROBABLE_BY_DATE_OF_DEATH",

	Hosp:     "HOSP",
	ICU:      "ICU",
	Vent:     "VENT",
	CurrHosp: "CURR_HOSP",
	CurrICU:  "CURR_ICU",
	CurrVent: "CURR_VENT",

	Recovered: "RECOVERED",

	AntigenTotal:                     "ANTIGEN_TOTAL",
	AntigenPos:                       "ANTIGEN_POS",
	AntigenNeg:                       "ANTIGEN_NEG",
	AntigenTotalPeople:               "ANTIGEN_TOTAL_PEOPLE",
	AntigenPosPeople:                 "ANTIGEN_POS_PEOPLE",
	AntigenNegPeople:                 "ANTIGEN_NEG_PEOPLE",
	AntigenByCollectionDate:          "ANTIGEN_BY_COLLECTION_DATE",
	AntigenPosByCollectionDate:       "ANTIGEN_POS_BY_COLLECTION_DATE",
	AntigenNegByCollectionDate:       "ANTIGEN_NEG_BY_COLLECTION_DATE",
	AntigenPeopleByCollectionDate:    "ANTIGEN_PEOPLE_BY_COLLECTION_DATE",
	AntigenPosPeopleByCollectionDate: "ANTIGEN_POS_PEOPLE_BY_COLLECTION_DATE",

	Window: "WINDOW",
	PPR:    "PPR",
	Units:  "UNITS",
	SID:    "SID",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := State; f < fieldCount; f++ {
		m[fieldNames[f]] = f
	}
	return m
}()

// String returns the stable column name of the field.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is a member of the vocabulary.
func (f Field) Valid() bool {
	return f > Unknown && f < fieldCount
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid field %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseField resolves a canonical name; unknown names are rejected so a typo
// in configuration never turns into a phantom column.
func ParseField(name string) (Field, error) {
	if f, ok := fieldsByName[strings.TrimSpace(name)]; ok {
		return f, nil
	}
	return Unknown, fmt.Errorf("unknown canonical field %q", name)
}

// ParseFields resolves a list of canonical names.
func ParseFields(names []string) ([]Field, error) {
	out := make([]Field, 0, len(names))
	for _, name := range names {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// AllFields lists the vocabulary in declaration order.
func AllFields() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := State; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}
