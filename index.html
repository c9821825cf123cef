[Complete HTML content here]
