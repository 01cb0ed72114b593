package base

type CosemTag byte

const (
	// ---- standardized DLMS APDUs
	TagDataNotification         CosemTag = 15
	TagInformationReportRequest CosemTag = 24
	TagAARQ                     CosemTag = 96
	TagAARE                     CosemTag = 97
	TagRLRQ                     CosemTag = 98
	TagRLRE                     CosemTag = 99
	// --- APDUs used for data communication services
	TagGetRequest               CosemTag = 192
	TagSetRequest               CosemTag = 193
	TagEventNotificationRequest CosemTag = 194
	TagActionRequest            CosemTag = 195
	TagGetResponse              CosemTag = 196
	TagSetResponse              CosemTag = 197
	TagActionResponse           CosemTag = 199
	// --- ciphered pdus, recognized but never deciphered
	TagGeneralGloCiphering         CosemTag = 219
	TagGeneralDedCiphering         CosemTag = 220
	TagGloEventNotificationRequest CosemTag = 202
	TagDedEventNotificationRequest CosemTag = 210
	TagExceptionResponse           CosemTag = 216
)

// String returns the element name used in decoded trees.
func (t CosemTag) String() string {
	switch t {
	case TagDataNotification:
		return "DataNotification"
	case TagInformationReportRequest:
		return "InformationReportRequest"
	case TagAARQ:
		return "AssociationRequest"
	case TagAARE:
		return "AssociationResponse"
	case TagRLRQ:
		return "ReleaseRequest"
	case TagRLRE:
		return "ReleaseResponse"
	case TagGetRequest:
		return "GetRequest"
	case TagSetRequest:
		return "SetRequest"
	case TagEventNotificationRequest:
		return "EventNotificationRequest"
	case TagActionRequest:
		return "ActionRequest"
	case TagGetResponse:
		return "GetResponse"
	case TagSetResponse:
		return "SetResponse"
	case TagActionResponse:
		return "ActionResponse"
	case TagGeneralGloCiphering:
		return "GeneralGloCiphering"
	case TagGeneralDedCiphering:
		return "GeneralDedCiphering"
	case TagGloEventNotificationRequest:
		return "GloEventNotificationRequest"
	case TagDedEventNotificationRequest:
		return "DedEventNotificationRequest"
	case TagExceptionResponse:
		return "ExceptionResponse"
	default:
		return "Unknown"
	}
}

// Invoke-id-and-priority high byte values
const (
	PriorityNormalConfirmed = 0x40
	PriorityHighUnconfirmed = 0x80
	PriorityHighConfirmed   = 0xc0
	InvokeIdMask            = 0x00ffffff
	HdlcFlag                = 0x7e
	HdlcFrameFormat         = 0xa0
	HdlcUIFinal             = 0x13
	ResponseDateTimeTag     = 0x0c
	ResponseInvokeTag       = 0x10
	DefaultDeviationMinutes = -180
	ObisLength              = 6
	ObisHexLength           = 2 * ObisLength
	MinFrameLength          = 10
	MaxReceiveBuffer        = 4096
)
