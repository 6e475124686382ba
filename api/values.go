package api

// ValuesOverrides is the subset of a per-environment values file
// (helm-values/<service>/value-overrides-<env>.yaml) that releases touch.
// Pointers distinguish an absent key from an empty one.
type ValuesOverrides struct {
	Image        *ImageValues        `yaml:"image"`
	MigrationJob *MigrationJobValues `yaml:"migrationJob"`
}

// ImageValues is the container image block of a values file.
type ImageValues struct {
	Repository string  `yaml:"repository"`
	Tag        *string `yaml:"tag"`
}

// MigrationJobValues is the optional database migration job block.
type MigrationJobValues struct {
	Image *ImageValues `yaml:"image"`
}

// ImageTag returns .image.tag and whether it is set.
func (v ValuesOverrides) ImageTag() (string, bool) {
	if v.Image == nil || v.Image.Tag == nil {
		return "", false
	}
	return *v.Image.Tag, true
}

// MigrationJobImageTag returns .migrationJob.image.tag and whether it is set.
func (v ValuesOverrides) MigrationJobImageTag() (string, bool) {
	if v.MigrationJob == nil || v.MigrationJob.Image == nil || v.MigrationJob.Image.Tag == nil {
		return "", false
	}
	return *v.MigrationJob.Image.Tag, true
}
