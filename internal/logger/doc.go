// Package logger wraps zap for the whole binary:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV) so every component
//     logs under its own name,
//   - level parsing and per-logger level overrides,
//   - an adapter that lets the MQTT client print through zap.
package logger
