package domain

import (
	"errors"
	"testing"
)

func TestValuesFilePath(t *testing.T) {
	tests := []struct {
		env    Environment
		folder string
		want   string
	}{
		{EnvQA, "myservice", "helm-values/myservice/value-overrides-qa.yaml"},
		{EnvStage, "My Service", "helm-values/my-service/value-overrides-stage.yaml"},
		{EnvDev, "billing_api", "helm-values/billing-api/value-overrides-dev.yaml"},
		{EnvDev, "  Odd__Name  ", "helm-values/odd-name/value-overrides-dev.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ValuesFilePath(tt.env, tt.folder); got != tt.want {
				t.Errorf("ValuesFilePath(%q, %q) = %q, want %q", tt.env, tt.folder, got, tt.want)
			}
		})
	}
}

func TestReleaseBranchName(t *testing.T) {
	if got := ReleaseBranchName("myservice", "1.0.1-rc-42"); got != "automated/myservice-1.0.1-rc-42" {
		t.Errorf("ReleaseBranchName() = %q", got)
	}
	if got := ReleaseBranchName("My Service", "2.0.0"); got != "automated/my-service-2.0.0" {
		t.Errorf("ReleaseBranchName() = %q", got)
	}
}

func TestEnvironmentFromValuesFile(t *testing.T) {
	tests := []struct {
		file   string
		want   string
		wantOK bool
	}{
		{"value-overrides-qa.yaml", "qa", true},
		{"value-overrides-stage.yaml", "stage", true},
		{"value-overrides-.yaml", "", false},
		{"values.yaml", "", false},
		{"value-overrides-qa.yml", "", false},
	}
	for _, tt := range tests {
		got, ok := EnvironmentFromValuesFile(tt.file)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("EnvironmentFromValuesFile(%q) = (%q, %v), want (%q, %v)", tt.file, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestVerifyPatch(t *testing.T) {
	const file = "helm-values/svc/value-overrides-qa.yaml"
	target := PatchTarget{Path: ".image.tag"}

	tests := []struct {
		name    string
		before  FieldValue
		after   FieldValue
		want    string
		wantErr error
	}{
		{
			name:   "transition verified",
			before: FieldValue{Path: ".image.tag", Value: "1.0.0", Found: true},
			after:  FieldValue{Path: ".image.tag", Value: "1.0.1-rc-42", Found: true},
			want:   "1.0.1-rc-42",
		},
		{
			name:    "path missing before write",
			before:  FieldValue{Path: ".image.tag"},
			after:   FieldValue{Path: ".image.tag", Value: "1.0.1", Found: true},
			want:    "1.0.1",
			wantErr: ErrPathNotFound,
		},
		{
			name:    "write did not take",
			before:  FieldValue{Path: ".image.tag", Value: "1.0.0", Found: true},
			after:   FieldValue{Path: ".image.tag", Value: "1.0.0", Found: true},
			want:    "1.0.1",
			wantErr: ErrPatchNoOp,
		},
		{
			name:    "already at target",
			before:  FieldValue{Path: ".image.tag", Value: "1.0.1", Found: true},
			after:   FieldValue{Path: ".image.tag", Value: "1.0.1", Found: true},
			want:    "1.0.1",
			wantErr: ErrPatchNoOp,
		},
		{
			name:    "value vanished after write",
			before:  FieldValue{Path: ".image.tag", Value: "1.0.0", Found: true},
			after:   FieldValue{Path: ".image.tag"},
			want:    "1.0.1",
			wantErr: ErrPatchNoOp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPatch(file, target, tt.before, tt.after, tt.want)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("VerifyPatch() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("VerifyPatch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
