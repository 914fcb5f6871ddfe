package api

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/danmuck/dectmail/internal/testutil/testlog"
)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

func decode(t *testing.T, c *catalog.Catalog, p frame.Primitive, payload []byte) catalog.Outcome {
	t.Helper()
	out, err := c.Decode(frame.Frame{Primitive: p, Payload: payload})
	if err != nil {
		t.Fatalf("decode %s: %v", p, err)
	}
	return out
}

func TestCatalogCoversEveryPrimitive(t *testing.T) {
	c := newCatalog(t)
	if c.Len() != 40 {
		t.Fatalf("expected 40 entries, got %d", c.Len())
	}
	for _, e := range c.Entries() {
		if e.Role == catalog.RoleRequest && (e.Decode != nil || e.Notify != nil) {
			t.Fatalf("request %s must not carry a decoder", e.Name)
		}
	}
	if err := Register(c); !errors.Is(err, catalog.ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
}

func TestRequestsConfirmRegisteredPrimitives(t *testing.T) {
	c := newCatalog(t)
	reqs := []catalog.Request{
		FpResetReq{}, PpResetReq{}, FpGetFwVersionReq{}, PpGetFwVersionReq{},
		FpMmGetIdReq{}, FpMmGetAccessCodeReq{}, FpMmSetRegistrationModeReq{},
		PpMmLockReq{}, PpMmLockedReq{}, PpMmRegistrationSearchReq{},
		PpMmRegistrationSelectedReq{}, PpMmRegistrationAutoReq{},
		GetDectModeReq(), ImageInfoReq{}, ImageActivateReq{},
		HalLedReq{}, HalReadReq{}, HalWriteReq{},
	}
	for _, req := range reqs {
		e, ok := c.Lookup(req.Primitive())
		if !ok || e.Role != catalog.RoleRequest {
			t.Fatalf("request %s not registered as request", req.Primitive())
		}
		for _, p := range req.Confirms() {
			e, ok := c.Lookup(p)
			if !ok || e.Role == catalog.RoleRequest {
				t.Fatalf("%s confirms unregistered %s", e.Name, p)
			}
		}
	}
}

func TestFwVersionCfm(t *testing.T) {
	testlog.Start(t)
	c := newCatalog(t)

	payload := []byte{0x00, 0x21, 0x03, 0x01, 0x00, 0x24, 0x03, 0x15, 0x10, 0x42, 0x02}
	out := decode(t, c, ApiPpGetFwVersionCfm, payload)
	cfm, ok := out.Message.(PpGetFwVersionCfm)
	if !ok {
		t.Fatalf("expected PpGetFwVersionCfm, got %T", out.Message)
	}
	if cfm.VersionHex != 0x00010321 || cfm.DectType != 2 {
		t.Fatalf("unexpected version: %+v", cfm)
	}
	if got := cfm.LinkDate.String(); got != "2024-03-15 10:42" {
		t.Fatalf("expected link date 2024-03-15 10:42, got %q", got)
	}
	st, ok := out.Status()
	if !ok || st != status.Success {
		t.Fatalf("expected success, got %v ok=%v", st, ok)
	}

	_, err := c.Decode(frame.Frame{Primitive: ApiFpGetFwVersionCfm, Payload: payload[:10]})
	if !errors.Is(err, record.ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord, got %v", err)
	}
}

func TestAccessCodeStripsPadding(t *testing.T) {
	c := newCatalog(t)
	out := decode(t, c, ApiFpMmGetAccessCodeCfm, []byte{0x00, 0xFF, 0xF1, 0x23, 0x45})
	cfm := out.Message.(FpMmGetAccessCodeCfm)
	if got := cfm.AccessCode(); got != "12345" {
		t.Fatalf("expected access code 12345, got %q", got)
	}
}

func TestFpNameEmptyAndSet(t *testing.T) {
	c := newCatalog(t)

	out := decode(t, c, ApiPpMmFpNameInd, []byte{0x00})
	ind := out.Message.(PpMmFpNameInd)
	if len(ind.Name) != 0 || ind.String() != "" {
		t.Fatalf("expected empty name, got %q", ind.Name)
	}

	out = decode(t, c, ApiPpMmFpNameInd, []byte{0x04, 'B', 'A', 'S', 'E'})
	if got := out.Message.(PpMmFpNameInd).String(); got != "BASE" {
		t.Fatalf("expected BASE, got %q", got)
	}

	_, err := c.Decode(frame.Frame{Primitive: ApiPpMmFpNameInd, Payload: []byte{0x05, 'B'}})
	if !errors.Is(err, record.ErrTruncatedRecord) {
		t.Fatalf("expected overlong name to fail, got %v", err)
	}
}

func TestSearchIndCaps(t *testing.T) {
	c := newCatalog(t)
	payload := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05,
		0x01, 0x40, 0x00, 0x00,
		0x00, 0x10, 0x00, 0x00,
	}
	out := decode(t, c, ApiPpMmRegistrationSearchInd, payload)
	ind := out.Message.(PpMmRegistrationSearchInd)
	if ind.Rfpi != [RfpiLen]byte{1, 2, 3, 4, 5} {
		t.Fatalf("unexpected rfpi: %x", ind.Rfpi)
	}
	want := []string{"full slot", "multibearer connections", "GAP"}
	if got := ind.Caps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected caps %v, got %v", want, got)
	}
}

func TestRegistrationFailedReason(t *testing.T) {
	c := newCatalog(t)
	out := decode(t, c, ApiPpMmRegistrationFailedInd, []byte{0x10, 0x02, 0x00, 0xAA, 0xBB})
	ind := out.Message.(PpMmRegistrationFailedInd)
	if ind.Reason.String() != "authentication failed" {
		t.Fatalf("unexpected reason: %s", ind.Reason)
	}
	if !bytes.Equal(ind.InfoElement, []byte{0xAA, 0xBB}) {
		t.Fatalf("unexpected info element: %x", ind.InfoElement)
	}
	if RejectReason(0xEE).String() != "reject reason 0xEE" {
		t.Fatalf("unexpected unknown reason rendering: %s", RejectReason(0xEE))
	}
}

func TestImageInfoNameAndLabel(t *testing.T) {
	c := newCatalog(t)
	payload := []byte{
		0x00, 0x01,
		0x11, 0x22, 0x33, 0x44,
		0x55, 0x66, 0x77, 0x88,
		0x24, 0x01, 0x02, 0x03, 0x04,
		0x02, 0x03,
		'f', 'w', 'r', 'e', 'l',
	}
	out := decode(t, c, ApiImageInfoCfm, payload)
	cfm := out.Message.(ImageInfoCfm)
	if cfm.ImageIndex != 1 || cfm.ImageId != 0x44332211 || cfm.DeviceId != 0x88776655 {
		t.Fatalf("unexpected image info: %+v", cfm)
	}
	if string(cfm.Name()) != "fw" || string(cfm.Label()) != "rel" {
		t.Fatalf("unexpected name/label: %q %q", cfm.Name(), cfm.Label())
	}

	_, err := c.Decode(frame.Frame{Primitive: ApiImageInfoCfm, Payload: payload[:len(payload)-1]})
	if !errors.Is(err, record.ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord, got %v", err)
	}
}

func TestImageInfoLengthsClampToData(t *testing.T) {
	cfm := ImageInfoCfm{NameLength: 3}
	if len(cfm.Name()) != 0 || len(cfm.Label()) != 0 {
		t.Fatalf("expected empty name and label, got %q %q", cfm.Name(), cfm.Label())
	}
	cfm = ImageInfoCfm{NameLength: 2, LabelLength: 4, Data: []byte("fwre")}
	if string(cfm.Name()) != "fw" || string(cfm.Label()) != "re" {
		t.Fatalf("unexpected clamped name/label: %q %q", cfm.Name(), cfm.Label())
	}
}

func TestDeviceStatusPassthrough(t *testing.T) {
	c := newCatalog(t)
	out := decode(t, c, ApiImageActivateCfm, []byte{0x80})
	st, ok := out.Status()
	if !ok || st.Known() || st.String() != "RSS_UNRECOGNIZED(0x80)" {
		t.Fatalf("unexpected status: %v ok=%v", st, ok)
	}
	out = decode(t, c, ApiHalWriteCfm, []byte{0xFF, 0x02})
	st, _ = out.Status()
	if st != status.Max || st.Known() {
		t.Fatalf("expected RSS_MAX to pass through, got %v", st)
	}
}

func TestProdTestDectMode(t *testing.T) {
	c := newCatalog(t)

	req := SetDectModeReq(DectModeUS)
	if got := req.Payload(); !bytes.Equal(got, []byte{0x01, 0x02, 0x01, 0x00, 0x01}) {
		t.Fatalf("unexpected set dect mode payload: %x", got)
	}

	out := decode(t, c, ApiProdTestCfm, []byte{0x02, 0x02, 0x01, 0x00, 0x0B})
	mode, ok := out.Message.(ProdTestCfm).DectMode()
	if !ok || mode != DectModeJapan5ch || mode.String() != "Japan (5ch)" {
		t.Fatalf("unexpected mode: %v ok=%v", mode, ok)
	}
	if DectMode(12).String() != "Invalid" {
		t.Fatalf("expected Invalid for out of range mode")
	}
	if m, err := ParseDectMode("US Extended"); err != nil || m != DectModeUSExtended {
		t.Fatalf("unexpected parse: %v %v", m, err)
	}
}

func TestRequestPayloads(t *testing.T) {
	cases := []struct {
		name string
		req  catalog.Request
		want []byte
	}{
		{"selected", PpMmRegistrationSelectedReq{SubscriptionNo: 1, AcCode: [4]byte{0xFF, 0xFF, 0, 0}, Rfpi: [5]byte{1, 2, 3, 4, 5}},
			[]byte{0x01, 0xFF, 0xFF, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05}},
		{"auto", PpMmRegistrationAutoReq{SubscriptionNo: 1, AcCode: [4]byte{0xFF, 0xFF, 0, 0}},
			[]byte{0x01, 0xFF, 0xFF, 0x00, 0x00}},
		{"search", PpMmRegistrationSearchReq{SearchMode: SearchSingle}, []byte{0x01}},
		{"led", HalLedReq{LedId: 2, Cmds: []LedCmd{{Command: 1, Duration: 0x0102}}},
			[]byte{0x02, 0x01, 0x01, 0x02, 0x01}},
		{"hal read", HalReadReq{Area: HalAreaNvs, Address: 0x10, Length: 4},
			[]byte{0x02, 0x10, 0x00, 0x00, 0x00, 0x04, 0x00}},
		{"activate", ImageActivateReq{ImageIndex: 1, Restart: true}, []byte{0x01, 0x01}},
		{"locked", PpMmLockedReq{}, nil},
	}
	for _, tc := range cases {
		if got := tc.req.Payload(); !bytes.Equal(got, tc.want) {
			t.Fatalf("%s: expected %x, got %x", tc.name, tc.want, got)
		}
	}

	wire := catalog.EncodeRequest(ImageInfoReq{ImageIndex: 3})
	if !bytes.Equal(wire, []byte{0x04, 0x5A, 0x03}) {
		t.Fatalf("unexpected wire mail: %x", wire)
	}
}
