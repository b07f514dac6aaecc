// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/coremount/vnodefs/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	textTraceString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=TRACE message=\"TestLogs: www.traceExample.com\""
	textDebugString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=DEBUG message=\"TestLogs: www.debugExample.com\""
	textInfoString    = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=INFO message=\"TestLogs: www.infoExample.com\""
	textWarningString = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=WARNING message=\"TestLogs: www.warningExample.com\""
	textErrorString   = "^time=\"[a-zA-Z0-9/:. ]{26}\" severity=ERROR message=\"TestLogs: www.errorExample.com\""

	jsonTraceString   = `^\{"timestamp":\{"seconds":\d{9,10},"nanos":\d{0,9}\},"severity":"TRACE","message":"TestLogs: www.traceExample.com"\}`
	jsonDebugString   = `^\{"timestamp":\{"seconds":\d{9,10},"nanos":\d{0,9}\},"severity":"DEBUG","message":"TestLogs: www.debugExample.com"\}`
	jsonInfoString    = `^\{"timestamp":\{"seconds":\d{9,10},"nanos":\d{0,9}\},"severity":"INFO","message":"TestLogs: www.infoExample.com"\}`
	jsonWarningString = `^\{"timestamp":\{"seconds":\d{9,10},"nanos":\d{0,9}\},"severity":"WARNING","message":"TestLogs: www.warningExample.com"\}`
	jsonErrorString   = `^\{"timestamp":\{"seconds":\d{9,10},"nanos":\d{0,9}\},"severity":"ERROR","message":"TestLogs: www.errorExample.com"\}`
)

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level string) {
	programLevel := new(slog.LevelVar)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(buf, programLevel, "TestLogs: "),
	)
	setLoggingLevel(level, programLevel)
}

func fetchLogOutputForSpecifiedSeverityLevel(level string, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("www.traceExample.com") },
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
			continue
		}
		assert.Regexp(t, regexp.MustCompile(expected[i]), output[i])
	}
}

func validateLogOutputAtSpecifiedFormatAndSeverity(t *testing.T, format, level string, expectedOutput []string) {
	defaultLoggerFactory.format = format
	output := fetchLogOutputForSpecifiedSeverityLevel(level, getTestLoggingFunctions())
	validateOutput(t, expectedOutput, output)
}

func TestTextFormatLogs_LogLevelOFF(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "OFF", []string{"", "", "", "", ""})
}

func TestTextFormatLogs_LogLevelERROR(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "ERROR", []string{"", "", "", "", textErrorString})
}

func TestTextFormatLogs_LogLevelWARNING(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "WARNING", []string{"", "", "", textWarningString, textErrorString})
}

func TestTextFormatLogs_LogLevelINFO(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "INFO", []string{"", "", textInfoString, textWarningString, textErrorString})
}

func TestTextFormatLogs_LogLevelDEBUG(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "DEBUG", []string{"", textDebugString, textInfoString, textWarningString, textErrorString})
}

func TestTextFormatLogs_LogLevelTRACE(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", "TRACE", []string{textTraceString, textDebugString, textInfoString, textWarningString, textErrorString})
}

func TestJSONFormatLogs_LogLevelOFF(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "json", "OFF", []string{"", "", "", "", ""})
}

func TestJSONFormatLogs_LogLevelERROR(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "json", "ERROR", []string{"", "", "", "", jsonErrorString})
}

func TestJSONFormatLogs_LogLevelTRACE(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "json", "TRACE", []string{jsonTraceString, jsonDebugString, jsonInfoString, jsonWarningString, jsonErrorString})
}

func TestSetLoggingLevel(t *testing.T) {
	testData := []struct {
		inputLevel    string
		expectedLevel slog.Level
	}{
		{"TRACE", LevelTrace},
		{"DEBUG", LevelDebug},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},
		{"OFF", LevelOff},
	}

	for _, test := range testData {
		programLevel := new(slog.LevelVar)
		setLoggingLevel(test.inputLevel, programLevel)
		assert.Equal(t, test.expectedLevel, programLevel.Level())
	}
}

func TestInitLogFile(t *testing.T) {
	dir := t.TempDir()
	filePath := dir + "/log.txt"
	lc := cfg.LoggingConfig{
		FilePath: cfg.ResolvedPath(filePath),
		Severity: cfg.DebugLogSeverity,
		Format:   "text",
		LogRotate: cfg.LogRotateLoggingConfig{
			MaxFileSizeMb:   100,
			BackupFileCount: 2,
			Compress:        true,
		},
	}

	err := InitLogFile(lc)

	require.NoError(t, err)
	assert.Equal(t, filePath, defaultLoggerFactory.file.Name())
	assert.Nil(t, defaultLoggerFactory.sysWriter)
	assert.Equal(t, "text", defaultLoggerFactory.format)
	assert.Equal(t, cfg.DebugLogSeverity, defaultLoggerFactory.level)
	assert.Equal(t, 100, defaultLoggerFactory.logRotateConfig.MaxFileSizeMb)
	assert.Equal(t, 2, defaultLoggerFactory.logRotateConfig.BackupFileCount)
	assert.True(t, defaultLoggerFactory.logRotateConfig.Compress)
}

func TestSetLogFormatToText(t *testing.T) {
	defaultLoggerFactory = &loggerFactory{
		file:   nil,
		level:  cfg.InfoLogSeverity,
		format: "json",
	}
	defaultLevelVar = newLevelVarFor(cfg.InfoLogSeverity)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLevelVar, ""))

	testData := []struct {
		format         string
		expectedOutput string
	}{
		{"text", textInfoString},
		{"json", jsonInfoString},
		{"", jsonInfoString},
	}

	for _, test := range testData {
		SetLogFormat(test.format)

		require.NotNil(t, defaultLoggerFactory)
		require.NotNil(t, defaultLogger)
		assert.Equal(t, test.format, defaultLoggerFactory.format)

		var buf bytes.Buffer
		redirectLogsToGivenBuffer(&buf, string(defaultLoggerFactory.level))
		Infof("www.infoExample.com")
		output := buf.String()
		assert.Regexp(t, regexp.MustCompile(test.expectedOutput), output)
	}
}
