// Package services contains the application services of the passvault
// client. CredentialService is the record store: every operation the UI
// performs on credentials, the recycle bin or password history goes
// through it, and it is the only writer of the credentials table apart
// from bulk import.
package services
