package polarization

import (
	"math"
	"testing"

	apperrors "polcam/internal/errors"
	"polcam/internal/models"
)

func randomishFrame(rows, cols int, seed int) models.Field {
	return createTestFrame(rows, cols, func(r, c int) float64 {
		return float64((r*31 + c*17 + seed*7) % 256)
	})
}

// TestStokesIdentities checks S0 = I00 + I90 and S1 = I00 - I90 exactly
func TestStokesIdentities(t *testing.T) {
	in := NewSingleFrame(randomishFrame(16, 12, 3))
	s := ComputeLinear(in)

	for i := range s.S0.Data {
		i00, i45, i90 := in.I00.Data[i], in.I45.Data[i], in.I90.Data[i]
		if s.S0.Data[i] != i00+i90 {
			t.Fatalf("S0[%d]: expected %v, got %v", i, i00+i90, s.S0.Data[i])
		}
		if s.S1.Data[i] != i00-i90 {
			t.Fatalf("S1[%d]: expected %v, got %v", i, i00-i90, s.S1.Data[i])
		}
		if s.S2.Data[i] != 2*i45-i00-i90 {
			t.Fatalf("S2[%d]: expected %v, got %v", i, 2*i45-i00-i90, s.S2.Data[i])
		}
	}
}

func TestStokesAllZeroFrame(t *testing.T) {
	s := ComputeLinear(NewSingleFrame(constantFrame(8, 8, 0)))
	for _, f := range []models.Field{s.S0, s.S1, s.S2} {
		for i, v := range f.Data {
			if v != 0 {
				t.Fatalf("Expected 0 at %d, got %v", i, v)
			}
		}
	}

	_, err := Normalize(s)
	if err == nil {
		t.Fatal("Expected normalization of an all-black frame to fail")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeDegenerateNormalization) {
		t.Errorf("Expected degenerate_normalization error, got %v", err)
	}
	if apperrors.DescriptorOf(err) != models.S0 {
		t.Errorf("Expected error to name S0, got %q", apperrors.DescriptorOf(err))
	}
}

// TestConstantFrameScenario is the 8x8 constant-100 walkthrough
func TestConstantFrameScenario(t *testing.T) {
	in := NewSingleFrame(constantFrame(8, 8, 100))

	for name, f := range map[string]models.Field{"I_00": in.I00, "I_45": in.I45, "I_90": in.I90} {
		if f.Rows != 4 || f.Cols != 4 {
			t.Fatalf("Expected %s to be 4x4, got %s", name, f)
		}
		for _, v := range f.Data {
			if v != 100 {
				t.Fatalf("Expected %s to be constant 100, got %v", name, v)
			}
		}
	}

	raw := ComputeLinear(in)
	for i := range raw.S0.Data {
		if raw.S0.Data[i] != 200 || raw.S1.Data[i] != 0 || raw.S2.Data[i] != 0 {
			t.Fatalf("Expected S0=200 S1=0 S2=0, got %v %v %v", raw.S0.Data[i], raw.S1.Data[i], raw.S2.Data[i])
		}
	}

	norm, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	lin := norm.(LinearStokes)
	for i := range lin.S0.Data {
		if lin.S0.Data[i] != 1 || lin.S1.Data[i] != 0 || lin.S2.Data[i] != 0 {
			t.Fatalf("Expected normalized S0=1 S1=0 S2=0, got %v %v %v", lin.S0.Data[i], lin.S1.Data[i], lin.S2.Data[i])
		}
	}

	// atan2(0, 0) is defined as 0, so a fully unpolarized field has OA = 0.
	desc, warnings := DeriveLinear(raw)
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	for i, v := range desc.OA.Data {
		if v != 0 {
			t.Fatalf("Expected OA=0 at %d, got %v", i, v)
		}
	}
}

func TestNormalizeUsesGlobalMax(t *testing.T) {
	frame := createTestFrame(4, 4, func(r, c int) float64 { return float64(r*4 + c + 1) })
	raw := ComputeLinear(NewSingleFrame(frame))
	scale := raw.S0.Max()

	norm, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	lin := norm.(LinearStokes)

	if got := lin.S0.Max(); got != 1 {
		t.Errorf("Expected max(S0_norm)=1, got %v", got)
	}
	for i := range raw.S1.Data {
		if want := raw.S1.Data[i] / scale; lin.S1.Data[i] != want {
			t.Fatalf("S1_norm[%d]: expected %v, got %v", i, want, lin.S1.Data[i])
		}
	}
	if NormalizationScale(raw) != scale {
		t.Errorf("Expected scale %v, got %v", scale, NormalizationScale(raw))
	}
}

func TestDualFrameS3(t *testing.T) {
	main := randomishFrame(8, 8, 1)
	second := randomishFrame(8, 8, 9)
	in := NewDualFrame(main, second)

	raw := ComputeStokes(in)
	full, ok := raw.(FullStokes)
	if !ok {
		t.Fatalf("Expected FullStokes for dual-frame input, got %T", raw)
	}
	for i := range full.S3.Data {
		want := 2*in.I4590.Data[i] - in.I00.Data[i] - in.I90.Data[i]
		if full.S3.Data[i] != want {
			t.Fatalf("S3[%d]: expected %v, got %v", i, want, full.S3.Data[i])
		}
	}

	norm, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if _, ok := norm.(FullStokes); !ok {
		t.Errorf("Expected normalization to keep S3, got %T", norm)
	}
}

func TestDualFrameShapeMismatch(t *testing.T) {
	in := NewDualFrame(constantFrame(8, 8, 10), constantFrame(8, 10, 10))
	err := in.Validate()
	if err == nil {
		t.Fatal("Expected shape mismatch to be reported")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeShape) {
		t.Errorf("Expected shape error, got %v", err)
	}
	if apperrors.DescriptorOf(err) != models.I4590 {
		t.Errorf("Expected error to name I_45_90, got %q", apperrors.DescriptorOf(err))
	}
}

func TestProcessFieldsMatchDescriptorNames(t *testing.T) {
	for _, tc := range []struct {
		mode models.Mode
		in   Input
	}{
		{models.SingleFrame, NewSingleFrame(randomishFrame(8, 8, 2))},
		{models.DualFrame, NewDualFrame(randomishFrame(8, 8, 2), randomishFrame(8, 8, 5))},
	} {
		set, err := Process(tc.in)
		if err != nil {
			t.Fatalf("%s: Process failed: %v", tc.mode, err)
		}
		fields := set.Fields()
		names := models.DescriptorNames(tc.mode)
		if len(fields) != len(names) {
			t.Errorf("%s: expected %d fields, got %d", tc.mode, len(names), len(fields))
		}
		for _, name := range names {
			f, ok := fields[name]
			if !ok {
				t.Errorf("%s: missing %s", tc.mode, name)
				continue
			}
			if f.Rows != 4 || f.Cols != 4 {
				t.Errorf("%s: expected %s to be 4x4, got %s", tc.mode, name, f)
			}
		}
		_, _, _, _, ok := set.EllipseInputs()
		if ok != (tc.mode == models.DualFrame) {
			t.Errorf("%s: unexpected ellipse availability %v", tc.mode, ok)
		}
		if math.IsNaN(set.Scale) || set.Scale <= 0 {
			t.Errorf("%s: expected positive scale, got %v", tc.mode, set.Scale)
		}
	}
}
