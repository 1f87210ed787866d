package models

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// TeamFeatureVector is a team's rolling form as of its most recent game.
// Field tags name the derived feature column each value comes from.
type TeamFeatureVector struct {
	TeamID            int64     `json:"team_id,omitempty"`
	AsOf              time.Time `json:"as_of,omitempty"`
	PtsAvg5           float64   `json:"pts_avg5" feature:"pts_avg5" validate:"finite,gte=0"`
	FGPctAvg5         float64   `json:"fg_pct_avg5" feature:"fg_pct_avg5" validate:"finite,gte=0,lte=1"`
	FTPctAvg5         float64   `json:"ft_pct_avg5" feature:"ft_pct_avg5" validate:"finite,gte=0,lte=1"`
	FG3PctAvg5        float64   `json:"fg3_pct_avg5" feature:"fg3_pct_avg5" validate:"finite,gte=0,lte=1"`
	AstAvg5           float64   `json:"ast_avg5" feature:"ast_avg5" validate:"finite,gte=0"`
	RebAvg5           float64   `json:"reb_avg5" feature:"reb_avg5" validate:"finite,gte=0"`
	FTAAvg5           float64   `json:"fta_avg5" feature:"fta_avg5" validate:"finite,gte=0"`
	FTDrawingRateAvg5 float64   `json:"ft_drawing_rate_avg5" feature:"ft_drawing_rate_avg5" validate:"finite,gte=0"`
	WinStreak5        float64   `json:"win_streak5" feature:"win_streak5" validate:"finite,gte=0,lte=5"`
	TovAvg5           float64   `json:"tov_avg5" feature:"tov_avg5" validate:"finite,gte=0"`
	StlAvg5           float64   `json:"stl_avg5" feature:"stl_avg5" validate:"finite,gte=0"`
	OvertimeRate10    float64   `json:"overtime_rate10" feature:"overtime_rate10" validate:"finite,gte=0,lte=1"`
}

// MissingFeatureError reports feature keys absent from a dict-shaped payload.
type MissingFeatureError struct {
	Keys []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing feature keys: %s", strings.Join(e.Keys, ", "))
}

var (
	featureFieldMap     map[string]int
	featureFieldNames   []string
	featureFieldMapOnce sync.Once
)

func getFeatureFieldMap() map[string]int {
	featureFieldMapOnce.Do(func() {
		t := reflect.TypeOf(TeamFeatureVector{})
		featureFieldMap = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			name := t.Field(i).Tag.Get("feature")
			if name == "" {
				continue
			}
			featureFieldMap[name] = i
			featureFieldNames = append(featureFieldNames, name)
		}
	})
	return featureFieldMap
}

// FeatureNames lists the team-specific feature columns in declaration order.
func FeatureNames() []string {
	getFeatureFieldMap()
	out := make([]string, len(featureFieldNames))
	copy(out, featureFieldNames)
	return out
}

// Value returns the named feature. ok is false for names the vector does not carry.
func (v TeamFeatureVector) Value(name string) (float64, bool) {
	idx, ok := getFeatureFieldMap()[name]
	if !ok {
		return 0, false
	}
	return reflect.ValueOf(v).Field(idx).Float(), true
}

// Set assigns the named feature. Unknown names are reported via ok.
func (v *TeamFeatureVector) Set(name string, value float64) bool {
	idx, ok := getFeatureFieldMap()[name]
	if !ok {
		return false
	}
	reflect.ValueOf(v).Elem().Field(idx).SetFloat(value)
	return true
}

// Map returns the vector as feature name -> value.
func (v TeamFeatureVector) Map() map[string]float64 {
	fm := getFeatureFieldMap()
	rv := reflect.ValueOf(v)
	out := make(map[string]float64, len(fm))
	for name, idx := range fm {
		out[name] = rv.Field(idx).Float()
	}
	return out
}

// FeatureVectorFromMap converts a dict-shaped stat payload. Every team
// feature must be present; extra keys are ignored.
func FeatureVectorFromMap(teamID int64, m map[string]float64) (TeamFeatureVector, error) {
	v := TeamFeatureVector{TeamID: teamID}
	var missing []string
	for _, name := range FeatureNames() {
		val, ok := m[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		v.Set(name, val)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return TeamFeatureVector{}, &MissingFeatureError{Keys: missing}
	}
	return v, nil
}

// NewValidator returns a validator with the domain's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		return true
	})
	return v
}
