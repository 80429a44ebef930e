package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// EncodingMethod selects how categorical columns become numbers.
type EncodingMethod string

const (
	EncodeOneHot  EncodingMethod = "onehot"
	EncodeLabel   EncodingMethod = "label"
	EncodeOrdinal EncodingMethod = "ordinal"
)

// EncodingMethods lists the accepted encoding methods.
var EncodingMethods = []string{string(EncodeOneHot), string(EncodeLabel), string(EncodeOrdinal)}

// Valid reports whether m is a known encoding method.
func (m EncodingMethod) Valid() bool {
	switch m {
	case EncodeOneHot, EncodeLabel, EncodeOrdinal:
		return true
	}
	return false
}

// UnseenPolicy describes what an encoder does with a category absent from
// its vocabulary.
type UnseenPolicy int

const (
	// Ignore encodes the value as an all-zero indicator row.
	Ignore UnseenPolicy = iota
	// Reserved encodes the value with the reserved code UnseenCode.
	Reserved
	// Fail rejects the value with an UnseenCategoryError.
	Fail
)

func (p UnseenPolicy) String() string {
	switch p {
	case Ignore:
		return "ignore"
	case Reserved:
		return "reserved"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// UnseenCode is the ordinal code given to categories not seen during fit.
const UnseenCode = -1

// Vocabulary is the sorted set of categories learned for one column.
type Vocabulary struct {
	Column     string
	Categories []string
}

// Code returns the index of v in the vocabulary.
func (v *Vocabulary) Code(value string) (int, bool) {
	i := sort.SearchStrings(v.Categories, value)
	if i < len(v.Categories) && v.Categories[i] == value {
		return i, true
	}
	return 0, false
}

// CategoricalEncoder learns a vocabulary for a column and applies it.
// Encoders hold no state of their own; the vocabulary is the fitted state.
type CategoricalEncoder interface {
	Method() EncodingMethod
	UnseenPolicy() UnseenPolicy
	Fit(column string, values []string) *Vocabulary
	Apply(vocab *Vocabulary, values []string) ([]*frame.Column, error)
	OutputNames(vocab *Vocabulary) []string
}

// NewEncoder returns the encoder for method.
func NewEncoder(method EncodingMethod) (CategoricalEncoder, error) {
	switch method {
	case EncodeOneHot:
		return OneHotEncoder{}, nil
	case EncodeLabel:
		return LabelEncoder{}, nil
	case EncodeOrdinal:
		return OrdinalEncoder{}, nil
	default:
		return nil, errors.NewConfigurationError("encoding_method", method, EncodingMethods...)
	}
}

func fitVocabulary(column string, values []string) *Vocabulary {
	seen := make(map[string]struct{})
	cats := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)
	return &Vocabulary{Column: column, Categories: cats}
}

// OneHotEncoder emits one 0/1 indicator column per category, named
// "<column>_<category>". Unseen categories produce an all-zero row.
type OneHotEncoder struct{}

func (OneHotEncoder) Method() EncodingMethod     { return EncodeOneHot }
func (OneHotEncoder) UnseenPolicy() UnseenPolicy { return Ignore }
func (OneHotEncoder) Fit(column string, values []string) *Vocabulary {
	return fitVocabulary(column, values)
}

func (OneHotEncoder) OutputNames(vocab *Vocabulary) []string {
	names := make([]string, len(vocab.Categories))
	for i, c := range vocab.Categories {
		names[i] = vocab.Column + "_" + c
	}
	return names
}

func (e OneHotEncoder) Apply(vocab *Vocabulary, values []string) ([]*frame.Column, error) {
	names := e.OutputNames(vocab)
	cols := make([]*frame.Column, len(names))
	for k, name := range names {
		cols[k] = frame.NewNumerical(name, make([]float64, len(values)))
	}
	for i, v := range values {
		if code, ok := vocab.Code(v); ok {
			cols[code].Floats[i] = 1
		}
	}
	return cols, nil
}

// OrdinalEncoder replaces each category with its index in the sorted
// vocabulary. Unseen categories get UnseenCode.
type OrdinalEncoder struct{}

func (OrdinalEncoder) Method() EncodingMethod     { return EncodeOrdinal }
func (OrdinalEncoder) UnseenPolicy() UnseenPolicy { return Reserved }
func (OrdinalEncoder) Fit(column string, values []string) *Vocabulary {
	return fitVocabulary(column, values)
}
func (OrdinalEncoder) OutputNames(vocab *Vocabulary) []string { return []string{vocab.Column} }

func (OrdinalEncoder) Apply(vocab *Vocabulary, values []string) ([]*frame.Column, error) {
	codes := make([]float64, len(values))
	for i, v := range values {
		code, ok := vocab.Code(v)
		if !ok {
			code = UnseenCode
		}
		codes[i] = float64(code)
	}
	return []*frame.Column{frame.NewNumerical(vocab.Column, codes)}, nil
}

// LabelEncoder replaces each category with its index in the sorted
// vocabulary and rejects categories it has not seen.
type LabelEncoder struct{}

func (LabelEncoder) Method() EncodingMethod     { return EncodeLabel }
func (LabelEncoder) UnseenPolicy() UnseenPolicy { return Fail }
func (LabelEncoder) Fit(column string, values []string) *Vocabulary {
	return fitVocabulary(column, values)
}
func (LabelEncoder) OutputNames(vocab *Vocabulary) []string { return []string{vocab.Column} }

func (LabelEncoder) Apply(vocab *Vocabulary, values []string) ([]*frame.Column, error) {
	codes := make([]float64, len(values))
	for i, v := range values {
		code, ok := vocab.Code(v)
		if !ok {
			return nil, errors.NewUnseenCategoryError(vocab.Column, v, i)
		}
		codes[i] = float64(code)
	}
	return []*frame.Column{frame.NewNumerical(vocab.Column, codes)}, nil
}
