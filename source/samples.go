package source

import (
	"fmt"
	"os"
	"path/filepath"
)

// SampleTexts are short machine learning snippets used to bootstrap a
// document directory.
var SampleTexts = []string{
	"Machine learning is a subset of artificial intelligence that focuses on learning from data.",
	"Deep learning uses neural networks with multiple layers to learn hierarchical representations.",
	"Natural language processing enables computers to understand and generate human language.",
	"Computer vision allows machines to interpret and understand visual information from images.",
	"Reinforcement learning trains agents to make decisions through trial and error.",
	"Supervised learning uses labeled data to train predictive models.",
	"Unsupervised learning discovers patterns in data without labels.",
	"Transfer learning leverages pre-trained models for new tasks.",
	"Convolutional neural networks are specialized for processing grid-like data such as images.",
	"Recurrent neural networks are designed to handle sequential data like text and time series.",
	"Transformers have revolutionized natural language processing with attention mechanisms.",
	"Generative AI can create new content including text, images, and audio.",
	"Data preprocessing is crucial for building effective machine learning models.",
	"Feature engineering involves creating relevant features from raw data.",
	"Model evaluation metrics help assess the performance of machine learning algorithms.",
	"Overfitting occurs when a model learns noise in the training data.",
	"Regularization techniques help prevent overfitting in machine learning models.",
	"Cross-validation is used to assess model performance on unseen data.",
	"Ensemble methods combine multiple models to improve predictions.",
	"Hyperparameter tuning optimizes model configuration for better performance.",
}

// WriteSamples writes count sample documents named doc_001.txt, doc_002.txt
// and so on into dir, cycling through SampleTexts. It returns the paths written.
func WriteSamples(dir string, count int) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("sample count must not be negative: %d", count)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc_%03d.txt", i+1))
		if err := os.WriteFile(path, []byte(SampleTexts[i%len(SampleTexts)]), 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
