package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignAndValidateVoterID(t *testing.T) {
	InitializeSecretKey("test-secret")

	voterID := "01890a5d-ac96-774b-bcce-b302099a8057"
	signature := SignVoterID(voterID)
	assert.NotEmpty(t, signature)

	assert.True(t, ValidateVoterID(voterID, signature))
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	InitializeSecretKey("test-secret")

	voterID := "01890a5d-ac96-774b-bcce-b302099a8057"
	signature := SignVoterID(voterID)

	assert.False(t, ValidateVoterID(voterID, signature+"x"))
	assert.False(t, ValidateVoterID(voterID, ""))
	assert.False(t, ValidateVoterID(voterID, "not-base64!!"))
}

func TestValidateRejectsForeignVoterID(t *testing.T) {
	InitializeSecretKey("test-secret")

	signature := SignVoterID("01890a5d-ac96-774b-bcce-b302099a8057")
	assert.False(t, ValidateVoterID("01890a5d-ac96-774b-bcce-000000000000", signature))
}

func TestSignaturesChangeWithSecret(t *testing.T) {
	voterID := "01890a5d-ac96-774b-bcce-b302099a8057"

	InitializeSecretKey("secret-a")
	signatureA := SignVoterID(voterID)

	InitializeSecretKey("secret-b")
	assert.False(t, ValidateVoterID(voterID, signatureA))
}
