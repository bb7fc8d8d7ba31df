package abstract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentationTypeJSON(t *testing.T) {
	tests := []struct {
		name string
		pt   PresentationType
		json string
	}{
		{name: "none", pt: PresentationNone, json: `{"pt":null}`},
		{name: "oral", pt: PresentationOral, json: `{"pt":"ORAL"}`},
		{name: "e-poster", pt: PresentationEPoster, json: `{"pt":"E_POSTER"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(struct {
				PT PresentationType `json:"pt"`
			}{tt.pt})
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))

			var got struct {
				PT PresentationType `json:"pt"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.pt, got.PT)
		})
	}
}
