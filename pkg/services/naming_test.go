package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ontoschema/pkg/config"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Person", "person"},
		{"PostalAddress", "postal_address"},
		{"HTTPServer", "http_server"},
		{"has-part", "has_part"},
		{"birthDate", "birth_date"},
		{"ISO8601Date", "iso8601_date"},
		{"already_snake", "already_snake"},
		{"  spaced  name ", "spaced_name"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.in))
		})
	}
}

func TestUpperSnakeAndPascal(t *testing.T) {
	assert.Equal(t, "DARK_RED", UpperSnake("darkRed"))
	assert.Equal(t, "PostalAddress", PascalCase("postal_address"))
	assert.Equal(t, "HasPart", PascalCase("has-part"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "postal_address", TableName("PostalAddress", config.TableNamingSnake))
	assert.Equal(t, "postal_addresses", TableName("PostalAddress", config.TableNamingPlural))
	assert.Equal(t, "people", TableName("Person", config.TableNamingPlural))
	assert.Equal(t, "person", singularTable("people"))
	assert.Equal(t, "postal_address", singularTable("postal_addresses"))
}
