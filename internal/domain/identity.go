package domain

// RoleCustomer is assigned to every newly authenticated identity.
const RoleCustomer = "Customer"

// Identity holds the verified claims extracted from a federated identity token.
type Identity struct {
	Subject     string `json:"-"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// PhoneUser is the user view returned after a successful passcode login.
type PhoneUser struct {
	PhoneNumber string `json:"phoneNumber"`
}
