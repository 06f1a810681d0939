package validation

import (
	"errors"
	"net/url"
	"testing"

	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_CreateTransaction(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"type":"income","category":1,"amount":1000.5,"description":"Salary"}`, ""},
		{"valid without description", `{"type":"expense","category":3,"amount":20}`, ""},
		{"numeric strings are converted", `{"type":"expense","category":"3","amount":"20.5"}`, ""},
		{"negative amount allowed", `{"type":"expense","category":3,"amount":-5}`, ""},
		{"malformed", `{"type":`, "Invalid JSON body"},
		{"not an object", `[1,2]`, "Invalid JSON body"},
		{"null body", `null`, "Invalid JSON body"},
		{"missing type", `{"category":1,"amount":1}`, `"type" is required`},
		{"missing category", `{"type":"income","amount":1}`, `"category" is required`},
		{"missing amount", `{"type":"income","category":1}`, `"amount" is required`},
		{"invalid type", `{"type":"invalid","category":1,"amount":1}`, `"type" must be one of [income, expense]`},
		{"empty type", `{"type":"","category":1,"amount":1}`, `"type" must be one of [income, expense]`},
		{"type not a string", `{"type":5,"category":1,"amount":1}`, `"type" must be one of [income, expense]`},
		{"type null", `{"type":null,"category":1,"amount":1}`, `"type" must be one of [income, expense]`},
		{"category not a number", `{"type":"income","category":"food","amount":1}`, `"category" must be a number`},
		{"category not an integer", `{"type":"income","category":1.5,"amount":1}`, `"category" must be an integer`},
		{"category beyond int64", `{"type":"income","category":9223372036854775808,"amount":1}`, `"category" must be a safe number`},
		{"category beyond 2^53", `{"type":"income","category":9007199254740993,"amount":1}`, `"category" must be a safe number`},
		{"category at 2^53 - 1", `{"type":"income","category":9007199254740991,"amount":1}`, ""},
		{"negative category beyond 2^53", `{"type":"income","category":"-9007199254740993","amount":1}`, `"category" must be a safe number`},
		{"amount beyond 2^53", `{"type":"income","category":1,"amount":1e300}`, `"amount" must be a safe number`},
		{"amount not a number", `{"type":"income","category":1,"amount":"lots"}`, `"amount" must be a number`},
		{"amount boolean", `{"type":"income","category":1,"amount":true}`, `"amount" must be a number`},
		{"amount null", `{"type":"income","category":1,"amount":null}`, `"amount" must be a number`},
		{"empty description", `{"type":"income","category":1,"amount":1,"description":""}`, `"description" is not allowed to be empty`},
		{"description not a string", `{"type":"income","category":1,"amount":1,"description":7}`, `"description" must be a string`},
		{"unknown key", `{"type":"income","category":1,"amount":1,"date":"2024-01-01"}`, `"date" is not allowed`},
		{"first field wins", `{"type":"nope","amount":"x"}`, `"type" must be one of [income, expense]`},
		{"conversion error before later required", `{"type":"income","category":"x"}`, `"category" must be a number`},
		{"required before later conversion error", `{"category":1,"amount":"x"}`, `"type" is required`},
		{"field errors before unknown keys", `{"zzz":1,"aaa":2,"type":"income"}`, `"category" is required`},
		{"unknown keys sorted", `{"zzz":1,"aaa":2,"type":"income","category":1,"amount":1}`, `"aaa" is not allowed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateTransactionRequest
			err := v.DecodeJSON([]byte(tt.body), &req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr), "expected *Error, got %v", err)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestCreateTransactionRequest_Input(t *testing.T) {
	var req CreateTransactionRequest
	require.NoError(t, New().DecodeJSON([]byte(`{"type":"expense","category":"3","amount":"20.5","description":"Milk"}`), &req))

	in := req.Input()
	assert.Equal(t, core.Expense, in.Type)
	assert.Equal(t, int64(3), in.Category)
	assert.Equal(t, 20.5, in.Amount)
	require.NotNil(t, in.Description)
	assert.Equal(t, "Milk", *in.Description)
}

func TestDecodeJSON_Lenient(t *testing.T) {
	v := New()

	var req UpdateTransactionRequest
	err := v.DecodeJSON([]byte(`{"amount":0,"description":"","type":"bogus","category":null,"other":true}`), &req, Lenient())
	require.NoError(t, err)

	upd := req.Update()
	require.NotNil(t, upd.Amount)
	assert.Equal(t, 0.0, *upd.Amount)
	require.NotNil(t, upd.Description)
	assert.Equal(t, "", *upd.Description)
	require.NotNil(t, upd.Type)
	assert.Equal(t, core.TransactionType("bogus"), *upd.Type)
	assert.Nil(t, upd.Category)
	assert.False(t, upd.IsEmpty())

	req = UpdateTransactionRequest{}
	require.NoError(t, v.DecodeJSON([]byte(`{"unrelated":1}`), &req, Lenient()))
	assert.True(t, req.Update().IsEmpty())

	req = UpdateTransactionRequest{}
	err = v.DecodeJSON([]byte(`{"amount":"abc"}`), &req, Lenient())
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `"amount" must be a number`, verr.Message)

	err = v.DecodeJSON([]byte(`not json`), &req, Lenient())
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeQuery_ListTransactions(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		query    string
		wantErr  string
		wantPage core.Page
	}{
		{"defaults", "", "", core.Page{Offset: 0, Limit: 10}},
		{"explicit", "offset=2&limit=5", "", core.Page{Offset: 2, Limit: 5}},
		{"zero offset", "offset=0", "", core.Page{Offset: 0, Limit: 10}},
		{"negative offset", "offset=-1", `"offset" must be greater than or equal to 0`, core.Page{}},
		{"zero limit", "limit=0", `"limit" must be greater than or equal to 1`, core.Page{}},
		{"limit not a number", "limit=abc", `"limit" must be a number`, core.Page{}},
		{"limit empty", "limit=", `"limit" must be a number`, core.Page{}},
		{"limit fractional", "limit=2.5", `"limit" must be an integer`, core.Page{}},
		{"repeated key", "limit=1&limit=2", `"limit" must be a number`, core.Page{}},
		{"unknown key", "page=2", `"page" is not allowed`, core.Page{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			var q ListTransactionsQuery
			err = v.DecodeQuery(values, &q)
			if tt.wantErr != "" {
				var verr *Error
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, q.Page())
		})
	}
}

func TestDecodeQuery_Summary(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		query      string
		wantErr    string
		wantFilter core.SummaryFilter
	}{
		{"no filters", "", "", core.SummaryFilter{}},
		{
			"all filters",
			"startDate=2024-01-01&endDate=2024-12-31&category=Salary",
			"",
			core.SummaryFilter{StartDate: "2024-01-01", EndDate: "2024-12-31", Category: "Salary"},
		},
		{
			"bad start date",
			"startDate=01-01-2024",
			`"startDate" with value "01-01-2024" fails to match the required pattern: /^\d{4}-\d{2}-\d{2}$/`,
			core.SummaryFilter{},
		},
		{"empty end date", "endDate=", `"endDate" is not allowed to be empty`, core.SummaryFilter{}},
		{"empty category", "category=", `"category" is not allowed to be empty`, core.SummaryFilter{}},
		{"unknown key", "type=income", `"type" is not allowed`, core.SummaryFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			var q SummaryQuery
			err = v.DecodeQuery(values, &q)
			if tt.wantErr != "" {
				var verr *Error
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFilter, q.Filter())
		})
	}
}

func TestDecode_RejectsNonStruct(t *testing.T) {
	var n int
	err := New().DecodeJSON([]byte(`{}`), &n)
	require.Error(t, err)
	var verr *Error
	assert.False(t, errors.As(err, &verr))
}
