package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/backend/domain"
)

func TestDecodeRegister(t *testing.T) {
	var req RegisterRequest
	err := Decode([]byte(`{"email":"a@b.org","password":"12345678","full_name":"A","role":"blood_bank"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBloodBank, req.Role)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		dst  interface{}
		want string
	}{
		"malformed json": {body: `{`, dst: &LoginRequest{}, want: "invalid payload"},
		"unknown role":   {body: `{"email":"a@b.org","password":"12345678","full_name":"A","role":"NURSE"}`, dst: &RegisterRequest{}, want: "invalid payload"},
		"bad email":      {body: `{"email":"nope","password":"x"}`, dst: &LoginRequest{}, want: "email must satisfy email"},
		"short password": {body: `{"email":"a@b.org","password":"1","full_name":"A","role":"USER"}`, dst: &RegisterRequest{}, want: "password must satisfy min=8"},
		"units":          {body: `{"donor_id":"7d3c1a8e-3f0a-4c55-9a52-2f7a3d9e1b11","blood_group":"O+","units":9}`, dst: &DonationRequest{}, want: "units must satisfy max=4"},
		"donor id":       {body: `{"donor_id":"x","blood_group":"O+","units":1}`, dst: &DonationRequest{}, want: "donor_id must satisfy uuid"},
		"missing status": {body: `{}`, dst: &StatusUpdateRequest{}, want: "status must satisfy required"},
		"too many tags":  {body: `{"title":"t","body":"b","tags":["1","2","3","4","5","6","7","8","9","10","11"]}`, dst: &PostRequest{}, want: "tags must satisfy max=10"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Decode([]byte(tc.body), tc.dst)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEnvelopeString(t *testing.T) {
	assert.JSONEq(t, `{"status":"success","data":{"ok":true}}`, NewSuccess(map[string]bool{"ok": true}, nil).String())
	assert.JSONEq(t, `{"status":"error","code":"INVALID","error":"bad"}`, NewError("INVALID", "bad", nil).String())
}
