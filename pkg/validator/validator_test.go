package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addItemForm mirrors the shape the cart handler validates.
type addItemForm struct {
	ProductID string `validate:"required"`
	Size      string `validate:"required"`
	Price     int64  `validate:"gte=0"`
	Quantity  int    `validate:"required,gte=1"`
}

type receiptForm struct {
	Email string `validate:"required,email"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_ValidForm(t *testing.T) {
	form := addItemForm{ProductID: "prod-1", Size: "M", Price: 459000, Quantity: 2}
	assert.NoError(t, Validate(form))
}

func TestValidate_MissingRequired(t *testing.T) {
	form := addItemForm{Price: 459000, Quantity: 2}
	err := Validate(form)
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Equal(t, "is required", fields["ProductID"])
	assert.Equal(t, "is required", fields["Size"])
}

func TestValidate_NumericBound(t *testing.T) {
	form := addItemForm{ProductID: "prod-1", Size: "M", Price: -1, Quantity: 2}
	err := Validate(form)
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Contains(t, fields["Price"], "greater than or equal to 0")
}

func TestValidate_Email(t *testing.T) {
	err := Validate(receiptForm{Email: "not-an-address"})
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Equal(t, "must be a valid email address", fields["Email"])

	assert.NoError(t, Validate(receiptForm{Email: "buyer@example.lk"}))
}

func TestValidationError_ErrorJoinsFields(t *testing.T) {
	err := Validate(addItemForm{})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "field 'ProductID' is required")
	assert.Contains(t, err.Error(), "; ")
}

func TestDecodeAndValidate_WellFormed(t *testing.T) {
	body := `{"ProductID":"prod-1","Size":"M","Price":459000,"Quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var form addItemForm
	require.NoError(t, DecodeAndValidate(req, &form))
	assert.Equal(t, "prod-1", form.ProductID)
	assert.Equal(t, 1, form.Quantity)
}

func TestDecodeAndValidate_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{broken"))

	var form addItemForm
	err := DecodeAndValidate(req, &form)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
	var valErr *ValidationError
	assert.NotErrorAs(t, err, &valErr)
}

func TestDecodeAndValidate_InvalidForm(t *testing.T) {
	body := `{"ProductID":"","Size":"M","Price":1,"Quantity":0}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var form addItemForm
	err := DecodeAndValidate(req, &form)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
