package analysis

import "strings"

// DocumentType is the coarse category inferred from a caption, used to steer
// the extraction prompt. Best effort with a safe default.
type DocumentType string

const (
	DocContract DocumentType = "contract"
	DocLicense  DocumentType = "license"
	DocIdentity DocumentType = "identity-document"
	DocPassport DocumentType = "passport"
	DocVisa     DocumentType = "visa"
)

type docTypeRule struct {
	docType  DocumentType
	keywords []string
}

// Most specific categories first; the contract fallback catches everything.
var docTypeRules = []docTypeRule{
	{DocPassport, []string{"passport", "جواز", "پاسپورٹ"}},
	{DocVisa, []string{"visa", "تأشيرة", "إقامة", "ویزا"}},
	{DocLicense, []string{"license", "licence", "رخصة", "لائسنس"}},
	{DocIdentity, []string{"identity", "emirates id", "id card", "هوية", "شناختی"}},
	{DocContract, []string{"contract", "agreement", "lease", "عقد", "اتفاقية", "معاہدہ"}},
}

// InferDocumentType derives a document category from keyword matches in the
// optional caption.
func InferDocumentType(caption string) DocumentType {
	normalized := strings.ToLower(strings.TrimSpace(caption))
	if normalized == "" {
		return DocContract
	}
	for _, rule := range docTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.docType
			}
		}
	}
	return DocContract
}
