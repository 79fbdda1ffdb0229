package telemetry

import (
	"context"
	"reflect"
	"testing"

	"workhub/api/internal/config"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("authorization=Bearer abc, x-team = core,broken")
	want := map[string]string{"authorization": "Bearer abc", "x-team": "core"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseHeaders() = %v, want %v", got, want)
	}
	if len(ParseHeaders("")) != 0 {
		t.Fatal("expected empty map")
	}
}

func TestSetupDisabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.OTelConfig{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if tel != nil {
		t.Fatal("expected nil telemetry when endpoint is empty")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown on nil telemetry: %v", err)
	}
	if Tracer() == nil {
		t.Fatal("expected a tracer even when disabled")
	}
}
