// ABOUTME: Package watson holds the HTTP clients for the two remote AI services.
// ABOUTME: The dialog engine walks scripted trees; the classifier ranks intents.

// Package watson provides clients for the Watson Dialog and Natural
// Language Classifier services. Both are stateless per call; conversation
// continuity lives entirely in the handles the caller carries.
package watson
