package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInstitutional(t *testing.T) {
	d := MustNew("iba-suk.edu.pk", "@iba-suk.edu.pk")

	tests := []struct {
		email string
		want  bool
	}{
		{"student@iba-suk.edu.pk", true},
		{"A@IBA-SUK.EDU.PK", true},
		{"a@gmail.com", false},
		{"a@iba-suk.edu.pk.evil.com", false},
		{"iba-suk.edu.pk", false},
		{"a@sub.iba-suk.edu.pk", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsInstitutional(tt.email))
		})
	}
}

func TestNew(t *testing.T) {
	d, err := New("IBA-SUK.edu.pk", "@iba-suk.EDU.pk")
	require.NoError(t, err)
	assert.Equal(t, "iba-suk.edu.pk", d.Host)
	assert.Equal(t, "@iba-suk.edu.pk", d.Suffix)

	_, err = New("iba-suk.edu.pk", "@gmail.com")
	assert.Error(t, err)

	_, err = New("", "@iba-suk.edu.pk")
	assert.Error(t, err)
}

func TestZeroDomainRejectsEverything(t *testing.T) {
	assert.False(t, Domain{}.IsInstitutional("a@iba-suk.edu.pk"))
}

func TestNormalizeHint(t *testing.T) {
	assert.Equal(t, "student@iba-suk.edu.pk", NormalizeHint("  Student@IBA-SUK.edu.pk \n"))
}

func TestValidationMessage(t *testing.T) {
	d := MustNew("iba-suk.edu.pk", "@iba-suk.edu.pk")
	assert.Equal(t, "Please use your IBA email (@iba-suk.edu.pk).", d.ValidationMessage())
}
