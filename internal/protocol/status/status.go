// Package status decodes the result code carried by most confirmations.
//
// The table is part of the wire contract. Codes outside it still decode; they
// report Known() == false instead of failing.
package status

import "fmt"

type Status uint8

const (
	Success             Status = 0x00
	NotSupported        Status = 0x01
	BadArguments        Status = 0x02
	BadAddress          Status = 0x03
	BadFunction         Status = 0x04
	BadHandle           Status = 0x05
	BadData             Status = 0x06
	BadLength           Status = 0x07
	NoMemory            Status = 0x08
	NoDevice            Status = 0x09
	NoData              Status = 0x0A
	Retry               Status = 0x0B
	NotReady            Status = 0x0C
	IO                  Status = 0x0D
	CRC                 Status = 0x0E
	Cancelled           Status = 0x0F
	Reset               Status = 0x10
	Pending             Status = 0x11
	Busy                Status = 0x12
	Timeout             Status = 0x13
	Overflow            Status = 0x14
	NotFound            Status = 0x15
	Stalled             Status = 0x16
	Denied              Status = 0x17
	Rejected            Status = 0x18
	Ambiguous           Status = 0x19
	NoResource          Status = 0x1A
	NotConnected        Status = 0x1B
	Offline             Status = 0x1C
	RemoteError         Status = 0x1D
	NoCapability        Status = 0x1E
	FileAccess          Status = 0x1F
	Duplicate           Status = 0x20
	LoggedOut           Status = 0x21
	AbnormalTermination Status = 0x22
	Failed              Status = 0x23
	Unknown             Status = 0x24
	Blocked             Status = 0x25
	NotAuthorized       Status = 0x26
	ProxyConnect        Status = 0x27
	InvalidPassword     Status = 0x28
	Forbidden           Status = 0x29
	MissingParameter    Status = 0x2A
	Spare2b             Status = 0x2B
	Spare2c             Status = 0x2C
	Spare2d             Status = 0x2D
	Spare2e             Status = 0x2E
	Spare2f             Status = 0x2F
	Unavailable         Status = 0x30
	Network             Status = 0x31
	NoCredits           Status = 0x32
	LowCredits          Status = 0x33
	Max                 Status = 0xFF
)

var names = map[Status]string{
	Success:             "RSS_SUCCESS",
	NotSupported:        "RSS_NOT_SUPPORTED",
	BadArguments:        "RSS_BAD_ARGUMENTS",
	BadAddress:          "RSS_BAD_ADDRESS",
	BadFunction:         "RSS_BAD_FUNCTION",
	BadHandle:           "RSS_BAD_HANDLE",
	BadData:             "RSS_BAD_DATA",
	BadLength:           "RSS_BAD_LENGTH",
	NoMemory:            "RSS_NO_MEMORY",
	NoDevice:            "RSS_NO_DEVICE",
	NoData:              "RSS_NO_DATA",
	Retry:               "RSS_RETRY",
	NotReady:            "RSS_NOT_READY",
	IO:                  "RSS_IO",
	CRC:                 "RSS_CRC",
	Cancelled:           "RSS_CANCELLED",
	Reset:               "RSS_RESET",
	Pending:             "RSS_PENDING",
	Busy:                "RSS_BUSY",
	Timeout:             "RSS_TIMEOUT",
	Overflow:            "RSS_OVERFLOW",
	NotFound:            "RSS_NOT_FOUND",
	Stalled:             "RSS_STALLED",
	Denied:              "RSS_DENIED",
	Rejected:            "RSS_REJECTED",
	Ambiguous:           "RSS_AMBIGUOUS",
	NoResource:          "RSS_NO_RESOURCE",
	NotConnected:        "RSS_NOT_CONNECTED",
	Offline:             "RSS_OFFLINE",
	RemoteError:         "RSS_REMOTE_ERROR",
	NoCapability:        "RSS_NO_CAPABILITY",
	FileAccess:          "RSS_FILE_ACCESS",
	Duplicate:           "RSS_DUPLICATE",
	LoggedOut:           "RSS_LOGGED_OUT",
	AbnormalTermination: "RSS_ABNORMAL_TERMINATION",
	Failed:              "RSS_FAILED",
	Unknown:             "RSS_UNKNOWN",
	Blocked:             "RSS_BLOCKED",
	NotAuthorized:       "RSS_NOT_AUTHORIZED",
	ProxyConnect:        "RSS_PROXY_CONNECT",
	InvalidPassword:     "RSS_INVALID_PASSWORD",
	Forbidden:           "RSS_FORBIDDEN",
	MissingParameter:    "RSS_MISSING_PARAMETER",
	Spare2b:             "RSS_SPARE_2B",
	Spare2c:             "RSS_SPARE_2C",
	Spare2d:             "RSS_SPARE_2D",
	Spare2e:             "RSS_SPARE_2E",
	Spare2f:             "RSS_SPARE_2F",
	Unavailable:         "RSS_UNAVAILABLE",
	Network:             "RSS_NETWORK",
	NoCredits:           "RSS_NO_CREDITS",
	LowCredits:          "RSS_LOW_CREDITS",
	Max:                 "RSS_MAX",
}

// Parse never fails: every byte is a Status.
func Parse(b byte) Status {
	return Status(b)
}

// Known reports whether s is a result code the device can report. Max is the
// enumeration bound, not an outcome, so it is not known.
func (s Status) Known() bool {
	if s == Max {
		return false
	}
	_, ok := names[s]
	return ok
}

func (s Status) IsSuccess() bool {
	return s == Success
}

// Name returns the RSS_ constant name, or RSS_UNRECOGNIZED for codes the
// table does not list.
func (s Status) Name() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "RSS_UNRECOGNIZED"
}

func (s Status) String() string {
	if !s.Known() {
		return fmt.Sprintf("%s(0x%02X)", s.Name(), uint8(s))
	}
	return s.Name()
}
