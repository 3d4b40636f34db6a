package domain

import dErrors "veristay/pkg/domain-errors"

// DocumentCategory tells which subject sub-record a document feeds.
type DocumentCategory string

const (
	CategoryIdentity DocumentCategory = "identity"
	CategoryAddress  DocumentCategory = "address"
	CategoryProperty DocumentCategory = "property"
	CategoryOther    DocumentCategory = "other"
)

// DocumentType enumerates the accepted forms of evidence. The set mirrors what
// the review console offers; unknown types fall into CategoryOther.
type DocumentType string

const (
	DocTypeCollegeID      DocumentType = "college_id"
	DocTypeStudentCard    DocumentType = "student_card"
	DocTypeOfferLetter    DocumentType = "offer_letter"
	DocTypePassport       DocumentType = "passport"
	DocTypeDriversLicense DocumentType = "drivers_license"
	DocTypeVoterID        DocumentType = "voter_id"
	DocTypePANCard        DocumentType = "pan_card"
	DocTypeUtilityBill    DocumentType = "utility_bill"
	DocTypeBankStatement  DocumentType = "bank_statement"
	DocTypeRentAgreement  DocumentType = "rent_agreement"
	DocTypePropertyDeed   DocumentType = "property_deed"
	DocTypePropertyTax    DocumentType = "property_tax_receipt"

	// DocTypeAadhaarCard is recognized only to be rejected: Aadhaar proof is
	// accepted exclusively through the OTP track so the raw number is never
	// stored or reviewed by hand.
	DocTypeAadhaarCard DocumentType = "aadhaar_card"
)

var documentCategories = map[DocumentType]DocumentCategory{
	DocTypeCollegeID:      CategoryIdentity,
	DocTypeStudentCard:    CategoryIdentity,
	DocTypeOfferLetter:    CategoryIdentity,
	DocTypePassport:       CategoryIdentity,
	DocTypeDriversLicense: CategoryIdentity,
	DocTypeVoterID:        CategoryIdentity,
	DocTypePANCard:        CategoryIdentity,
	DocTypeUtilityBill:    CategoryAddress,
	DocTypeBankStatement:  CategoryAddress,
	DocTypeRentAgreement:  CategoryProperty,
	DocTypePropertyDeed:   CategoryProperty,
	DocTypePropertyTax:    CategoryProperty,
}

// studentDocumentTypes are identity types that prove student status. A
// verified identity document of one of these types yields verified_student;
// any other verified identity type yields verified_intern.
var studentDocumentTypes = map[DocumentType]bool{
	DocTypeCollegeID:   true,
	DocTypeStudentCard: true,
}

// Category maps a document type to the sub-record it feeds.
func (t DocumentType) Category() DocumentCategory {
	if c, ok := documentCategories[t]; ok {
		return c
	}
	return CategoryOther
}

// IsStudentProof reports whether a verified document of this type marks the
// subject as a student rather than an intern.
func (t DocumentType) IsStudentProof() bool { return studentDocumentTypes[t] }

// ParseDocumentType validates external input against the accepted set.
// DocTypeAadhaarCard parses successfully; the workflow rejects it separately
// so callers get the dedicated disallowed-type error rather than a generic one.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document type cannot be empty")
	}
	t := DocumentType(s)
	if _, ok := documentCategories[t]; !ok && t != DocTypeAadhaarCard {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported document type: "+s)
	}
	return t, nil
}

// DocumentStatus is the review workflow state of a single document.
type DocumentStatus string

const (
	DocStatusPending     DocumentStatus = "pending"
	DocStatusUnderReview DocumentStatus = "under_review"
	DocStatusVerified    DocumentStatus = "verified"
	DocStatusRejected    DocumentStatus = "rejected"
)
