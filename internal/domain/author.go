package domain

// AuthorKind discriminates who performed an action.
type AuthorKind string

const (
	AuthorCustomer AuthorKind = "customer"
	AuthorStaff    AuthorKind = "staff"
	AuthorSystem   AuthorKind = "system"
)

// Author is a tagged union identifying a comment author, photo uploader
// or timeline actor. The constructors are the only way to build one, so a
// comment can never carry both a customer and a staff identity.
type Author struct {
	Kind AuthorKind
	ID   string
}

// CustomerAuthor identifies a customer actor.
func CustomerAuthor(customerID string) Author {
	return Author{Kind: AuthorCustomer, ID: customerID}
}

// StaffAuthor identifies a staff actor.
func StaffAuthor(staffID string) Author {
	return Author{Kind: AuthorStaff, ID: staffID}
}

// SystemAuthor identifies an action performed by the system itself.
func SystemAuthor() Author {
	return Author{Kind: AuthorSystem}
}

// IsCustomer reports whether the author is a customer.
func (a Author) IsCustomer() bool { return a.Kind == AuthorCustomer }

// IsStaff reports whether the author is a staff member.
func (a Author) IsStaff() bool { return a.Kind == AuthorStaff }
