package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the logger handed to the store and engine. When verbose is
// set, every message goes to w prefixed with "verbose: " for grep-ability;
// otherwise all logging is discarded.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		NameKey:    "logger",
		MessageKey: "msg",
		EncodeName: func(name string, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(name + ":")
		},
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core).Named("verbose")
}
