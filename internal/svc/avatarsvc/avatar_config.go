package avatarsvc

// AvatarConfig holds configuration parameters for the avatar service.
type AvatarConfig struct {
	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64 `env:"MAX_SIZE" envDefault:"2097152"`

	// MaxWidth caps the width of resized variants.
	MaxWidth int `env:"MAX_WIDTH" envDefault:"1024"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" envDefault:"catmullrom"`
}
