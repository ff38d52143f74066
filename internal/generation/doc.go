// Package generation defines the interfaces for producing content artifacts
// with an LLM. It is the boundary between the worker and the external model
// service, keeping the job handlers independent of any one provider.
package generation
