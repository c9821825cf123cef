[Complete CSS content here]
