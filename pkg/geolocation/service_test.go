package geolocation_test

import (
	stderrors "errors"
	"testing"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/geolocation/geotest"
	"github.com/go-drift/geolocation/pkg/platform"
)

func TestGetCurrentPosition_DefaultOptions(t *testing.T) {
	native := geotest.New()
	svc := geolocation.NewService(native)

	if err := svc.GetCurrentPosition(func(geolocation.Position) {}, nil, nil); err != nil {
		t.Fatalf("GetCurrentPosition: %v", err)
	}
	req := native.Last()
	if req == nil {
		t.Fatal("no native request issued")
	}
	if req.Options != geolocation.DefaultPositionOptions() {
		t.Errorf("options = %+v, want defaults", req.Options)
	}
	if len(native.Requests()) != 1 {
		t.Errorf("issued %d native requests, want 1", len(native.Requests()))
	}
}

func TestGetCurrentPosition_SuccessFiresOnceAndReleases(t *testing.T) {
	native := geotest.New()
	svc := geolocation.NewService(native)

	var got []geolocation.Position
	errCalls := 0
	err := svc.GetCurrentPosition(
		func(p geolocation.Position) { got = append(got, p) },
		func(geolocation.PositionError) { errCalls++ },
		&geolocation.PositionOptions{EnableHighAccuracy: true},
	)
	if err != nil {
		t.Fatalf("GetCurrentPosition: %v", err)
	}
	req := native.Last()

	if err := native.DeliverPosition(req, geotest.RawPosition(48.8584, 2.2945, 10, 1000)); err != nil {
		t.Fatalf("DeliverPosition: %v", err)
	}
	if len(got) != 1 || got[0].Coords.Latitude != 48.8584 || got[0].Timestamp != 1000 {
		t.Fatalf("got %v", got)
	}
	if !native.Released(req) {
		t.Error("callbacks should be released after the single delivery")
	}
	if err := native.DeliverError(req, geotest.RawError(3, "late")); !stderrors.Is(err, geotest.ErrReleased) {
		t.Errorf("second delivery err = %v, want ErrReleased", err)
	}
	if errCalls != 0 {
		t.Errorf("error callback fired %d times", errCalls)
	}
}

func TestGetCurrentPosition_ErrorCallback(t *testing.T) {
	native := geotest.New()
	svc := geolocation.NewService(native)

	var got []geolocation.PositionError
	_ = svc.GetCurrentPosition(
		func(geolocation.Position) { t.Error("success callback fired") },
		func(e geolocation.PositionError) { got = append(got, e) },
		nil,
	)
	req := native.Last()
	if err := native.DeliverError(req, geotest.RawError(1, "User denied Geolocation")); err != nil {
		t.Fatalf("DeliverError: %v", err)
	}
	if len(got) != 1 || got[0].Code != geolocation.PermissionDenied || got[0].Message != "User denied Geolocation" {
		t.Fatalf("got %+v", got)
	}
	if !native.Released(req) {
		t.Error("callbacks should be released after the error delivery")
	}
}

func TestGetCurrentPosition_NoErrorCallbackDropsFailure(t *testing.T) {
	r := captureReports(t)
	native := geotest.New()
	svc := geolocation.NewService(native)

	successCalls := 0
	if err := svc.GetCurrentPosition(func(geolocation.Position) { successCalls++ }, nil, nil); err != nil {
		t.Fatalf("GetCurrentPosition: %v", err)
	}
	if err := native.DeliverError(native.Last(), geotest.RawError(2, "no fix")); err != nil {
		t.Fatalf("DeliverError: %v", err)
	}

	if successCalls != 0 {
		t.Error("no callback should fire for a dropped failure")
	}
	if len(r.errs) != 1 || r.errs[0].Kind != errors.KindNative {
		t.Fatalf("reports = %v, want one native report", r.kinds())
	}
	if !stderrors.Is(r.errs[0], geolocation.ErrNoErrorCallback) {
		t.Errorf("report should wrap ErrNoErrorCallback: %v", r.errs[0])
	}
	var perr geolocation.PositionError
	if !stderrors.As(r.errs[0], &perr) || perr.Code != geolocation.PositionUnavailable {
		t.Errorf("report should carry the decoded PositionError: %v", r.errs[0])
	}
}

func TestGetCurrentPosition_NilSuccessCallback(t *testing.T) {
	native := geotest.New()
	err := geolocation.NewService(native).GetCurrentPosition(nil, nil, nil)
	if !stderrors.Is(err, geolocation.ErrNilCallback) {
		t.Errorf("err = %v, want ErrNilCallback", err)
	}
	if len(native.Requests()) != 0 {
		t.Error("no native request should be issued")
	}
}

func TestGetCurrentPosition_IssueFailure(t *testing.T) {
	native := geotest.New()
	native.GetErr = platform.ErrPlatformUnavailable

	err := geolocation.NewService(native).GetCurrentPosition(func(geolocation.Position) {}, nil, nil)
	if !stderrors.Is(err, platform.ErrPlatformUnavailable) {
		t.Errorf("err = %v, want ErrPlatformUnavailable", err)
	}
}

func TestGetCurrentPosition_MalformedPayloadIsReported(t *testing.T) {
	r := captureReports(t)
	native := geotest.New()
	svc := geolocation.NewService(native)

	calls := 0
	_ = svc.GetCurrentPosition(func(geolocation.Position) { calls++ }, func(geolocation.PositionError) { calls++ }, nil)
	if err := native.DeliverPosition(native.Last(), map[string]any{"coords": "?"}); err != nil {
		t.Fatalf("DeliverPosition: %v", err)
	}

	if calls != 0 {
		t.Errorf("callbacks fired %d times for malformed payload", calls)
	}
	if len(r.errs) != 1 || r.errs[0].Kind != errors.KindParsing {
		t.Fatalf("reports = %v, want one parsing report", r.kinds())
	}
	var decErr *geolocation.DecodeError
	if !stderrors.As(r.errs[0], &decErr) {
		t.Errorf("report should wrap *DecodeError: %v", r.errs[0])
	}
}

func TestGetCurrentPosition_UnknownErrorCodeIsReported(t *testing.T) {
	r := captureReports(t)
	native := geotest.New()
	svc := geolocation.NewService(native)

	_ = svc.GetCurrentPosition(func(geolocation.Position) {}, func(geolocation.PositionError) {
		t.Error("error callback fired for code 9")
	}, nil)
	_ = native.DeliverError(native.Last(), geotest.RawError(9, "?"))

	if got := r.kinds(); len(got) != 1 || got[0] != errors.KindParsing {
		t.Errorf("reports = %v, want one parsing report", got)
	}
}

func TestGetCurrentPosition_CallbackPanicIsContained(t *testing.T) {
	r := captureReports(t)
	native := geotest.New()
	svc := geolocation.NewService(native)

	_ = svc.GetCurrentPosition(func(geolocation.Position) { panic("boom") }, nil, nil)
	if err := native.DeliverPosition(native.Last(), geotest.RawPosition(0, 0, 1, 1)); err != nil {
		t.Fatalf("DeliverPosition: %v", err)
	}
	if len(r.panics) != 1 || r.panics[0].Value != "boom" {
		t.Errorf("panics = %v", r.panics)
	}
}

func TestGetCurrentPosition_UsesDispatcher(t *testing.T) {
	t.Cleanup(platform.ResetForTest)
	var queued []func()
	platform.RegisterDispatch(func(cb func()) { queued = append(queued, cb) })

	native := geotest.New()
	svc := geolocation.NewService(native)
	fired := false
	_ = svc.GetCurrentPosition(func(geolocation.Position) { fired = true }, nil, nil)
	_ = native.DeliverPosition(native.Last(), geotest.RawPosition(0, 0, 1, 1))

	if fired {
		t.Fatal("callback ran outside the dispatcher")
	}
	if len(queued) != 1 {
		t.Fatalf("queued %d callbacks, want 1", len(queued))
	}
	queued[0]()
	if !fired {
		t.Error("dispatched callback did not fire")
	}
}
