package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "EN", want: "en"},
		{in: "pt_BR", want: "pt-br"},
		{in: " zh-Hans ", want: "zh-hans"},
		{in: "es-419", want: "es-419"},
		{in: "xx", wantErr: true},
		{in: "english", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameAndBase(t *testing.T) {
	assert.Equal(t, "pt", Base("pt-br"))
	assert.Equal(t, "Portuguese", Name("pt-br"))
	assert.Equal(t, "qq", Name("qq"))
}
