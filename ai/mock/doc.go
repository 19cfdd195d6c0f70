// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests and offline CLI runs work without an embedding server
// while keeping results deterministic.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("model offline")
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder hashes the words of a text into a fixed number of buckets and
// normalizes the result. Texts that share words score a positive similarity,
// which is enough for ranking tests to be meaningful.
package mock
