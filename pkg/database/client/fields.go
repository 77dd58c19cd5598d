/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"fmt"
	"reflect"
	"strings"
)

// getFieldTags maps lowercase field names to their db column tags.
func getFieldTags(v interface{}) map[string]string {
	result := map[string]string{}
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		result[strings.ToLower(field.Name)] = tag
	}
	return result
}

// generateCommand renders an INSERT statement format with the named columns
// of the row struct, skipping the listed columns (typically none; ids are
// assigned by the caller).
func generateCommand(v interface{}, format string, skipColumns ...string) string {
	skip := map[string]bool{}
	for _, col := range skipColumns {
		skip[col] = true
	}
	var columns, values []string
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" || skip[tag] {
			continue
		}
		columns = append(columns, tag)
		values = append(values, ":"+tag)
	}
	return fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
}
