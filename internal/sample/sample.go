// Package sample generates a small Python project used for demos and for
// exercising the resolver against a real language server.
package sample

import (
	"fmt"
	"os"
	"path/filepath"
)

const mathUtilsContent = `"""Math utilities for demonstration."""


def calculate_sum(a, b):
    """Calculate the sum of two numbers."""
    return a + b


def calculate_product(a, b):
    """Calculate the product of two numbers."""
    return a * b


class Calculator:
    """A simple calculator class."""

    def __init__(self):
        self.history = []

    def add(self, x, y):
        result = calculate_sum(x, y)
        self.history.append(f"{x} + {y} = {result}")
        return result

    def multiply(self, x, y):
        result = calculate_product(x, y)
        self.history.append(f"{x} * {y} = {result}")
        return result

    def get_history(self):
        return self.history
`

const mainContent = `"""Main application demonstrating calculator usage."""

import os.path

from math_utils import Calculator, calculate_sum


def main():
    calc = Calculator()
    result1 = calc.add(5, 3)
    result2 = calc.multiply(4, 7)
    print(f"Calculator results: {result1}, {result2}")

    result3 = calculate_sum(10, 20)
    print(f"Direct calculation: {result3}")

    print(os.path.join("data", "results.txt"))


if __name__ == "__main__":
    main()
`

const testContent = `"""Tests for calculator functionality."""

import unittest

from math_utils import Calculator, calculate_sum


class TestCalculator(unittest.TestCase):
    def setUp(self):
        self.calc = Calculator()

    def test_add(self):
        self.assertEqual(self.calc.add(2, 3), 5)

    def test_calculate_sum(self):
        self.assertEqual(calculate_sum(10, 15), 25)


if __name__ == "__main__":
    unittest.main()
`

// Files returns the project filenames and their content.
func Files() map[string]string {
	return map[string]string{
		"math_utils.py":      mathUtilsContent,
		"main.py":            mainContent,
		"test_calculator.py": testContent,
	}
}

// Generate writes the sample project under dir, creating it if needed, and
// returns the project path.
func Generate(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create sample project directory: %w", err)
	}
	for name, content := range Files() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return dir, nil
}
