package auth

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	EmployeeID   string `json:"employeeId,omitempty"`
	PasswordHash string `json:"-"`
	MFAEnabled   bool   `json:"mfaEnabled"`
	MFASecretEnc []byte `json:"-"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
