package domain

// DocumentType classifies a submitted claim document.
type DocumentType string

const (
	DocTypeBill             DocumentType = "bill"
	DocTypeDischargeSummary DocumentType = "discharge_summary"
	DocTypeIDCard           DocumentType = "id_card"
	DocTypeUnknown          DocumentType = "unknown"
)

// ValidDocumentTypes maps every recognized document type.
var ValidDocumentTypes = map[DocumentType]bool{
	DocTypeBill:             true,
	DocTypeDischargeSummary: true,
	DocTypeIDCard:           true,
	DocTypeUnknown:          true,
}

// RequiredDocumentTypes is the canonical set a complete claim must contain.
var RequiredDocumentTypes = []DocumentType{
	DocTypeBill,
	DocTypeDischargeSummary,
	DocTypeIDCard,
}

// ClaimStatus is the terminal status of a claim decision.
type ClaimStatus string

const (
	ClaimStatusApproved       ClaimStatus = "approved"
	ClaimStatusRejected       ClaimStatus = "rejected"
	ClaimStatusRequiresReview ClaimStatus = "requires_review"
)

// RunState tracks a claim run through the orchestration pipeline.
type RunState string

const (
	RunStateReceived    RunState = "received"
	RunStateClassifying RunState = "classifying"
	RunStateExtracting  RunState = "extracting"
	RunStateValidating  RunState = "validating"
	RunStateDeciding    RunState = "deciding"
	RunStateCompleted   RunState = "completed"
	RunStateFailed      RunState = "failed"
)

// AllowedContentTypes maps MIME content types accepted at submission.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
}
