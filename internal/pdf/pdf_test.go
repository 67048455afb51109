package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
)

func TestValidateHeader(t *testing.T) {
	assert.NoError(t, ValidateHeader([]byte("%PDF-1.7\n...")))
	assert.NoError(t, ValidateHeader([]byte("%PDF-")))

	for _, data := range [][]byte{
		nil,
		{},
		[]byte("%PDF"),
		[]byte("PDF-1.7"),
		[]byte("<html>not a pdf</html>"),
	} {
		err := ValidateHeader(data)
		assert.True(t, domain.IsType(err, domain.ErrorTypeValidation), "data %q", data)
	}
}

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"png", "png"},
		{".png", "png"},
		{"JPG", "jpg"},
		{" .Tiff ", "tiff"},
		{"", "png"},
		{".", "png"},
		{"  ", "png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeExt(tt.in), "input %q", tt.in)
	}
}

func TestOpen_RejectsNonPDF(t *testing.T) {
	_, err := Open([]byte("definitely not a pdf"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	_, err = Open(nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}
